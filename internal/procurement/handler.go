package procurement

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes the purchase order API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Routes mounts the purchase order endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/from-indent-items", h.createFromIndentItems)
	r.Get("/pool", h.pool)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Patch("/{id}/items/{itemID}", h.patchItemQuantity)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/revert", h.revert)
	r.Post("/{id}/cancel", h.cancel)
	r.Delete("/{id}", h.delete)
	return r
}

type tempVendorRequest struct {
	GSTNo      string   `json:"gst_no"`
	PANNo      string   `json:"pan_no"`
	Categories []string `json:"categories"`
}

type tempItemRequest struct {
	SaveToMaster bool   `json:"save_to_master"`
	Code         string `json:"code"`
	Category     string `json:"category"`
	UOM          string `json:"uom"`
	Description  string `json:"description"`
}

type createLineRequest struct {
	ItemID      *int64           `json:"item_id"`
	Name        string           `json:"name"`
	Quantity    float64          `json:"quantity" validate:"required,gt=0"`
	UnitCost    float64          `json:"unit_cost" validate:"gte=0"`
	TaxRate     float64          `json:"tax_rate" validate:"gte=0,lte=100"`
	IndentLinks []IndentLink     `json:"indent_links"`
	TempItem    *tempItemRequest `json:"temp_item"`
}

type createRequest struct {
	Type                 string              `json:"type"`
	PRNo                 string              `json:"pr_no"`
	VendorID             *int64              `json:"vendor_id"`
	VendorName           string              `json:"vendor_name"`
	DeliveryDate         *time.Time          `json:"delivery_date"`
	RTVCredit            float64             `json:"rtv_credit" validate:"gte=0"`
	LinkedRTVID          *int64              `json:"linked_rtv_id"`
	AddToVendorMaster    bool                `json:"add_to_vendor_master"`
	AddToInventoryMaster bool                `json:"add_to_inventory_master"`
	TempVendor           *tempVendorRequest  `json:"temp_vendor"`
	Items                []createLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := CreateInput{
		Type:         OrderType(req.Type),
		PRNo:         req.PRNo,
		VendorID:     req.VendorID,
		VendorName:   req.VendorName,
		DeliveryDate: req.DeliveryDate,
		RTVCredit:    req.RTVCredit,
		LinkedRTVID:  req.LinkedRTVID,
		MasterFlags: MasterFlags{
			AddToVendorMaster:    req.AddToVendorMaster,
			AddToInventoryMaster: req.AddToInventoryMaster,
		},
	}
	if req.TempVendor != nil {
		in.TempVendor = &TempVendorData{
			GSTNo:      req.TempVendor.GSTNo,
			PANNo:      req.TempVendor.PANNo,
			Categories: req.TempVendor.Categories,
		}
	}
	for _, l := range req.Items {
		line := CreateLineInput{
			ItemID:      l.ItemID,
			Name:        l.Name,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			TaxRate:     l.TaxRate,
			IndentLinks: l.IndentLinks,
		}
		if l.TempItem != nil {
			line.TempItem = &TempItemData{
				SaveToMaster: l.TempItem.SaveToMaster,
				Code:         l.TempItem.Code,
				Category:     l.TempItem.Category,
				UOM:          l.TempItem.UOM,
				Description:  l.TempItem.Description,
			}
		}
		in.Items = append(in.Items, line)
	}

	po, lines, err := h.service.Create(r.Context(), *sess, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderView(po, lines))
}

type fromIndentRequest struct {
	IndentItemIDs []int64    `json:"indent_item_ids" validate:"required,min=1"`
	VendorID      int64      `json:"vendor_id" validate:"required"`
	DeliveryDate  *time.Time `json:"delivery_date"`
}

func (h *Handler) createFromIndentItems(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req fromIndentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, lines, err := h.service.CreateFromIndentItems(r.Context(), *sess, FromIndentInput{
		IndentItemIDs: req.IndentItemIDs,
		VendorID:      req.VendorID,
		DeliveryDate:  req.DeliveryDate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderView(po, lines))
}

func (h *Handler) pool(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	entries, err := h.service.ProcurementPool(r.Context(), sess.TenantID, sess.BranchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []PoolEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

type updateRequest struct {
	DeliveryDate *time.Time `json:"delivery_date"`
	VendorID     *int64     `json:"vendor_id"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.service.Update(r.Context(), *sess, id, UpdateInput{
		DeliveryDate: req.DeliveryDate,
		VendorID:     req.VendorID,
	}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type patchQuantityRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) patchItemQuantity(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(w, r, "itemID")
	if !ok {
		return
	}
	var req patchQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, err := h.service.PatchItemQuantity(r.Context(), *sess, id, itemID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":           po.ID,
		"display_id":   po.DisplayID,
		"total_amount": po.TotalAmount,
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, sess shared.Session, id int64) (PurchaseOrder, error) {
		return h.service.Approve(ctx, sess, id)
	})
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, sess shared.Session, id int64) (PurchaseOrder, error) {
		return h.service.Revert(ctx, sess, id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.Session, int64) (PurchaseOrder, error)) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	po, err := fn(r.Context(), *sess, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(po, nil))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), *sess, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), *sess, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	po, lines, err := h.service.Get(r.Context(), sess.TenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(po, lines))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	orders, err := h.service.List(r.Context(), sess.TenantID, sess.BranchID,
		Status(r.URL.Query().Get("status")), shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(orders))
	for _, po := range orders {
		views = append(views, orderView(po, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// orderView flattens the domain order into the wire shape. Lines are omitted
// when nil.
func orderView(po PurchaseOrder, lines []Line) map[string]any {
	view := map[string]any{
		"id":            po.ID,
		"display_id":    po.DisplayID,
		"branch_id":     po.BranchID,
		"pr_no":         po.PRNo,
		"vendor_id":     po.VendorID,
		"vendor_name":   po.VendorName,
		"type":          po.Type,
		"status":        po.Status,
		"total_amount":  po.TotalAmount,
		"rtv_credit":    po.RTVCredit,
		"linked_rtv_id": po.LinkedRTVID,
		"delivery_date": po.DeliveryDate,
		"created_by":    po.CreatedBy,
		"approved_by":   po.ApprovedBy,
		"created_at":    po.CreatedAt,
	}
	if lines != nil {
		lineViews := make([]map[string]any, 0, len(lines))
		for _, l := range lines {
			lv := map[string]any{
				"id":           l.ID,
				"name":         l.Name,
				"quantity":     l.Quantity,
				"unit_cost":    l.UnitCost,
				"tax_rate":     l.TaxRate,
				"total_price":  l.TotalPrice,
				"indent_links": l.IndentLinks,
			}
			if itemID, ok := l.Ref.ItemID(); ok {
				lv["item_id"] = itemID
			} else {
				lv["item_id"] = nil
				lv["temp_item"] = l.Ref.Temp()
			}
			lineViews = append(lineViews, lv)
		}
		view["items"] = lineViews
	}
	return view
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return 0, false
	}
	return id, true
}
