package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fleetops/fleetops/internal/accounts"
	"github.com/fleetops/fleetops/internal/customers"
	"github.com/fleetops/fleetops/internal/identity"
	"github.com/fleetops/fleetops/internal/journeys"
	"github.com/fleetops/fleetops/internal/locations"
	"github.com/fleetops/fleetops/internal/observability"
	"github.com/fleetops/fleetops/internal/tenants"
	"github.com/fleetops/fleetops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Tokens           *identity.TokenManager
	IdentityHandler  *identity.Handler
	LocationsHandler *locations.Handler
	JourneysHandler  *journeys.Handler
	CustomersHandler *customers.Handler
	AccountsHandler  *accounts.Handler
	TenantsHandler   *tenants.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with fleetops defaults.
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

	r.Route("/auth", params.IdentityHandler.MountRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identity.Middleware(params.Tokens, params.Logger))
		if params.LocationsHandler != nil {
			r.Route("/location-updates", params.LocationsHandler.MountRoutes)
		}
		if params.JourneysHandler != nil {
			r.Route("/journeys", params.JourneysHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.TenantsHandler != nil {
			r.Route("/tenants", params.TenantsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
