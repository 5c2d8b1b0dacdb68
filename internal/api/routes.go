package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/current", s.handleCurrentSession)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleClearSession)
			r.Post("/{id}/select", s.handleSelect)
			r.Post("/{id}/guess", s.handleGuess)
			r.Post("/{id}/hint", s.handleHint)
			r.Post("/{id}/complete", s.handleComplete)
		})
		r.Get("/history", s.handleHistory)
		r.Get("/stats", s.handleStats)

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", s.handleListQuotes)
			r.Post("/", s.handleAddQuote)
			r.Get("/daily", s.handleDailyQuote)
			r.Post("/{id}/retire", s.handleRetireQuote)
			r.Post("/{id}/schedule", s.handleScheduleQuote)
		})
	})
	return r
}
