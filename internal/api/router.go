// Package api assembles the HTTP surface of the planning service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shiftcast/shiftcast/internal/api/handlers"
	"github.com/shiftcast/shiftcast/internal/api/middleware"
	"github.com/shiftcast/shiftcast/internal/config"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAPIKeyAuth(cfg.Auth).Middleware)

	// Banner & health
	r.Get("/", bannerHandler(cfg))
	r.Get("/healthz", healthHandler)
	r.Get("/readyz", readyHandler(h))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plan", h.PlanShift)
		r.Post("/evaluate", h.EvaluateShift)

		r.Route("/results", func(r chi.Router) {
			r.Get("/", h.ListResults)
			r.Get("/{id}", h.GetResult)
		})

		r.Get("/presets", h.ListPresets)
		r.Get("/sessions", h.ListSessions)
	})

	return r
}

func bannerHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"service": "shiftcast",
			"version": cfg.Version,
			"api":     "/api/v1",
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "shiftcast",
	})
}

func readyHandler(h *handlers.Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
