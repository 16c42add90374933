package indents

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

// Handler exposes the indent API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Routes mounts the indent endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

type createRequest struct {
	WorkAreaID   int64         `json:"work_area_id" validate:"required"`
	EntryType    string        `json:"entry_type"`
	RequiredDate *time.Time    `json:"required_date"`
	Remarks      string        `json:"remarks"`
	Items        []lineRequest `json:"items" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ItemID       int64   `json:"item_id" validate:"required"`
	RequestedQty float64 `json:"requested_qty" validate:"required,gt=0"`
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
	lines := make([]LineInput, 0, len(req.Items))
	for _, l := range req.Items {
		lines = append(lines, LineInput{ItemID: l.ItemID, RequestedQty: l.RequestedQty})
	}
	ind, err := h.service.Create(r.Context(), *sess, CreateInput{
		WorkAreaID:   req.WorkAreaID,
		EntryType:    req.EntryType,
		RequiredDate: req.RequiredDate,
		Remarks:      req.Remarks,
		Items:        lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ind)
}

type approveRequest struct {
	// Overrides maps item id to the approved quantity when it differs from
	// the requested quantity.
	Overrides map[int64]float64 `json:"overrides"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	ind, err := h.service.Approve(r.Context(), *sess, id, req.Overrides)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ind)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Reject)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Cancel)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sess shared.Session, id int64) error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), *sess, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	ind, err := h.service.Get(r.Context(), sess.TenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ind)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	list, err := h.service.List(r.Context(), sess.TenantID, sess.BranchID, Status(r.URL.Query().Get("status")), shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Indent{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, ErrNotFound)
		return 0, false
	}
	return id, true
}
