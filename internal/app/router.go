package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-erp/atlas-erp/internal/accounting/accounts"
	"github.com/atlas-erp/atlas-erp/internal/accounting/balances"
	"github.com/atlas-erp/atlas-erp/internal/accounting/fixedassets"
	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/mappings"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/reconciliation"
	"github.com/atlas-erp/atlas-erp/internal/audit"
	"github.com/atlas-erp/atlas-erp/internal/integration"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	AccountsHandler       *accounts.Handler
	JournalsHandler       *journals.Handler
	PeriodsHandler        *periods.Handler
	BalancesHandler       *balances.Handler
	ReconciliationHandler *reconciliation.Handler
	FixedAssetsHandler    *fixedassets.Handler
	MappingsHandler       *mappings.Handler
	AuditHandler          *audit.Handler
	IntegrationHandler    *integration.Handler
	JobsHandler           *jobs.Handler
	Metrics               *observability.Metrics
}

// NewRouter constructs the chi.Router with Atlas defaults.
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

	r.Route("/api/accounting", func(r chi.Router) {
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/journal-entries", params.JournalsHandler.MountRoutes)
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
		r.Route("/balances", params.BalancesHandler.MountRoutes)
		r.Route("/reconciliations", params.ReconciliationHandler.MountRoutes)
		r.Route("/fixed-assets", params.FixedAssetsHandler.MountRoutes)
		if params.MappingsHandler != nil {
			r.Route("/mappings", params.MappingsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.IntegrationHandler != nil {
		r.Route("/api/integration/events", params.IntegrationHandler.MountRoutes)
	}

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
