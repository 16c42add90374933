package inventory

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes the stock balance read API.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the inventory endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stock", h.listStock)
	return r
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	workAreaID, _ := strconv.ParseInt(q.Get("work_area_id"), 10, 64)
	itemID, _ := strconv.ParseInt(q.Get("item_id"), 10, 64)

	balances, err := h.service.List(r.Context(), sess.TenantID, sess.BranchID,
		ListFilter{WorkAreaID: workAreaID, ItemID: itemID}, shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if balances == nil {
		balances = []StockBalance{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": balances})
}
