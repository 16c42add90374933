package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/larder-erp/larder-erp/internal/platform/httpx"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// Handler exposes login, logout and profile endpoints.
type Handler struct {
	service  *Service
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// PublicRoutes mounts the endpoints reachable without a session.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	return r
}

// Routes mounts the endpoints requiring a session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	return r
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_in": int(h.sessions.TTL().Seconds()),
		"user": map[string]any{
			"id":         result.User.ID,
			"display_id": result.User.DisplayID,
			"name":       result.User.Name,
			"email":      result.User.Email,
			"role":       result.User.Role,
			"tenant_id":  result.User.TenantID,
			"branch_id":  result.User.BranchID,
		},
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(r.Context(), sess.Token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	user, err := h.service.Profile(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
