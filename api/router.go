package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupDashboardRouter wires the operator UI, its JSON API and /metrics
func SetupDashboardRouter(h *DashboardHandler, health LinkHealth, gatherer prometheus.Gatherer, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/", h.ServeIndex)
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/readyz", Readiness(health))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/state", h.GetState)
		r.Post("/view", h.SetView)
		r.Post("/mode", h.SetMode)
		r.Post("/scenario", h.TriggerScenario)
	})

	return r
}

// SetupSimulatorRouter wires the telemetry source endpoints served by the twin
func SetupSimulatorRouter(h *SimulatorHandler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/api/telemetry", h.GetTelemetry)
	r.Post("/api/simulation/trigger", h.TriggerScenario)
	r.Options("/api/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
