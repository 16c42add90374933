package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/larder-erp/larder-erp/internal/shared"
)

type staticSource struct {
	grants map[string][]string
}

func (s staticSource) Permissions(ctx context.Context, tenantID int64, role string) ([]string, error) {
	return s.grants[role], nil
}

func doRequest(t *testing.T, guard func(http.Handler) http.Handler, sess *shared.Session) int {
	t.Helper()
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{Source: staticSource{grants: map[string][]string{
		"purchase_manager": {ModuleProcurement, ModuleRTV},
		"store_keeper":     {ModuleIndents},
	}}}

	guard := mw.RequireAny(ModuleProcurement, ModuleGoodsIn)

	require.Equal(t, http.StatusNoContent, doRequest(t, guard, &shared.Session{TenantID: 1, Role: "purchase_manager"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, guard, &shared.Session{TenantID: 1, Role: "store_keeper"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, guard, nil))
}

func TestRequireAll(t *testing.T) {
	mw := Middleware{Source: staticSource{grants: map[string][]string{
		"admin":            {ModuleProcurement, ModuleMasterData, ModuleAudit},
		"purchase_manager": {ModuleProcurement},
	}}}

	guard := mw.RequireAll(ModuleProcurement, ModuleMasterData)

	require.Equal(t, http.StatusNoContent, doRequest(t, guard, &shared.Session{TenantID: 1, Role: "admin"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, guard, &shared.Session{TenantID: 1, Role: "purchase_manager"}))
}

func TestEmptyRequirementPassesThrough(t *testing.T) {
	mw := Middleware{Source: staticSource{}}
	require.Equal(t, http.StatusNoContent, doRequest(t, mw.RequireAny(), &shared.Session{TenantID: 1, Role: "anyone"}))
}
