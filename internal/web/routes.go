package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/presence-check/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	agentsHandler := handlers.NewAgentsHandler(s.deps.Engine, s.deps.Templates)
	journalHandler := handlers.NewJournalHandler(s.deps.Journal, s.deps.Labels, s.deps.Location)
	statsHandler := handlers.NewStatsHandler(s.deps.Templates, s.deps.Journal)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	if s.deps.Gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)
		r.Get("/stats", statsHandler.Get)

		r.Route("/agents/{id}", func(r chi.Router) {
			r.Get("/", agentsHandler.Get)
			r.Get("/image", agentsHandler.Image)
			r.Post("/register", agentsHandler.Register)
			r.Post("/verify", agentsHandler.Verify)
		})

		r.Get("/journal", journalHandler.List)
		r.Get("/journal/export", journalHandler.Export)
	})
}
