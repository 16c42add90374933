package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// Middleware wires permission checks into HTTP handlers.
type Middleware struct {
	Source PermissionSource
	Logger *slog.Logger
}

// RequireAny ensures the caller's role grants at least one of the modules.
func (m Middleware) RequireAny(modules ...string) func(http.Handler) http.Handler {
	normalized := normalizeModules(modules)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.grantedModules(w, r)
			if !ok {
				return
			}
			if hasAnyModule(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the caller's role grants every listed module.
func (m Middleware) RequireAll(modules ...string) func(http.Handler) http.Handler {
	normalized := normalizeModules(modules)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.grantedModules(w, r)
			if !ok {
				return
			}
			if hasAllModules(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) grantedModules(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return nil, false
	}
	granted, err := m.Source.Permissions(r.Context(), sess.TenantID, sess.Role)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve permissions", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return granted, true
}

func normalizeModules(modules []string) []string {
	unique := make(map[string]struct{}, len(modules))
	for _, p := range modules {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyModule(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllModules(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
