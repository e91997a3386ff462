package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type RegisterHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health   HealthHandler
	Register RegisterHandler

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string

	// Metrics is served at /metrics; nil uses the default Prometheus registry.
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Register == nil {
		return nil, fmt.Errorf("nil Register handler")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)

	// Panic recovery
	r.Use(middleware.Recover)

	r.Use(middleware.Metrics)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", metrics)

	r.Route("/api/users", func(r chi.Router) {
		// Preflight is answered here, before method routing.
		r.Use(middleware.CORS(deps.CORSOrigins))
		r.Post("/register", deps.Register.Register)
	})

	return r, nil
}
