package items

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes the item catalog API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Routes mounts the item endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	return r
}

type createRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category"`
	UOM         string  `json:"uom"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
	TaxRate     float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	Description string  `json:"description"`
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
	item, err := h.service.Create(r.Context(), *sess, CreateInput{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		UOM:         req.UOM,
		UnitCost:    req.UnitCost,
		TaxRate:     req.TaxRate,
		Description: req.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
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
	item, err := h.service.Get(r.Context(), sess.TenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	list, err := h.service.List(r.Context(), sess.TenantID, r.URL.Query().Get("search"), shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Item{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}
