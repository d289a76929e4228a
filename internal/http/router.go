// Package httpapi assembles the public router. Transport concerns only;
// business logic lives in the services the handlers delegate to.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	enrollmenthandler "datapass/internal/enrollment/handler"
	"datapass/internal/platform/metrics"
	"datapass/internal/platform/middleware"
	"datapass/pkg/platform/middleware/requesttime"
)

// NewRouter wires all public endpoints. Everything under /enrollments requires
// a valid bearer token; health and metrics stay open for the platform.
func NewRouter(
	enrollments *enrollmenthandler.Handler,
	validator middleware.JWTValidator,
	httpMetrics *metrics.Metrics,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)
	if httpMetrics != nil {
		r.Use(httpMetrics.Instrument)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		enrollments.Register(r)
	})

	return r
}
