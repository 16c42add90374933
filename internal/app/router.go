package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/larder-erp/larder-erp/internal/audit"
	"github.com/larder-erp/larder-erp/internal/auth"
	"github.com/larder-erp/larder-erp/internal/grn"
	"github.com/larder-erp/larder-erp/internal/indents"
	"github.com/larder-erp/larder-erp/internal/inventory"
	"github.com/larder-erp/larder-erp/internal/masterdata/items"
	"github.com/larder-erp/larder-erp/internal/masterdata/vendors"
	"github.com/larder-erp/larder-erp/internal/observability"
	"github.com/larder-erp/larder-erp/internal/procurement"
	"github.com/larder-erp/larder-erp/internal/rbac"
	"github.com/larder-erp/larder-erp/internal/rtv"
	"github.com/larder-erp/larder-erp/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Sessions           *shared.SessionManager
	AuthHandler        *auth.Handler
	IndentsHandler     *indents.Handler
	ProcurementHandler *procurement.Handler
	GRNHandler         *grn.Handler
	RTVHandler         *rtv.Handler
	InventoryHandler   *inventory.Handler
	VendorsHandler     *vendors.Handler
	ItemsHandler       *items.Handler
	AuditHandler       *audit.Handler
	RBAC               rbac.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi router with the full API surface under
// /api/v1. Everything except login requires a bearer session; each module
// group additionally requires its RBAC module grant.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", params.AuthHandler.PublicRoutes())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(params.Sessions))

			r.Mount("/session", params.AuthHandler.Routes())

			r.With(params.RBAC.RequireAny(rbac.ModuleIndents)).
				Mount("/indents", params.IndentsHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleProcurement)).
				Mount("/purchase-orders", params.ProcurementHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleGoodsIn)).
				Mount("/grns", params.GRNHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleRTV)).
				Mount("/rtvs", params.RTVHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleInventory)).
				Mount("/inventory", params.InventoryHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleMasterData)).
				Mount("/vendors", params.VendorsHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleMasterData)).
				Mount("/items", params.ItemsHandler.Routes())
			r.With(params.RBAC.RequireAny(rbac.ModuleAudit)).
				Mount("/audit-logs", params.AuditHandler.Routes())
		})
	})

	return r
}
