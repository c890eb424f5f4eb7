package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/geo"
	"github.com/yont-erp/yont-erp/internal/observability"
	"github.com/yont-erp/yont-erp/internal/profiles"
	"github.com/yont-erp/yont-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthzHandler    *authz.Handler
	GeoHandler      *geo.Handler
	ProfilesHandler *profiles.Handler
	JobHandler      *jobs.Handler
	AuthzMiddleware authz.Middleware
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
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

	r.Route("/authz", func(r chi.Router) {
		params.AuthzHandler.MountRoutes(r)
	})

	r.Route("/geo", func(r chi.Router) {
		params.GeoHandler.MountRoutes(r)
	})

	r.Route("/profiles", func(r chi.Router) {
		params.ProfilesHandler.MountRoutes(r)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.RequireAuthority(authz.RankAdmin))
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
