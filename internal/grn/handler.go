package grn

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes the goods receipt API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Routes mounts the receipt endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	return r
}

type createRequest struct {
	POID            int64         `json:"po_id" validate:"required"`
	WorkAreaID      int64         `json:"work_area_id" validate:"required"`
	VendorInvoiceNo string        `json:"vendor_invoice_no"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ItemID      int64   `json:"item_id" validate:"required"`
	ReceivedQty float64 `json:"received_qty" validate:"required,gt=0"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
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
	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{ItemID: l.ItemID, ReceivedQty: l.ReceivedQty, UnitCost: l.UnitCost})
	}
	receipt, err := h.service.Create(r.Context(), *sess, CreateInput{
		POID:            req.POID,
		WorkAreaID:      req.WorkAreaID,
		VendorInvoiceNo: req.VendorInvoiceNo,
		Lines:           lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	receipt, err := h.service.Get(r.Context(), sess.TenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	list, err := h.service.List(r.Context(), sess.TenantID, sess.BranchID, shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []GoodsReceipt{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}
