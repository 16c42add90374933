package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes the audit trail read API.
type Handler struct {
	store *Store
}

// NewHandler constructs a Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the audit endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	f := Filter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	entries, err := h.store.List(r.Context(), sess.TenantID, f, shared.PaginationFromRequest(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}
