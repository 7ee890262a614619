package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/health", s.handleHealth)

	// Uploaded thing icons
	if s.uploads.Dir != "" {
		fs := http.FileServer(http.Dir(s.uploads.Dir))
		r.Handle(s.uploads.BaseHref+"/*", http.StripPrefix(s.uploads.BaseHref, fs))
	}

	// Thing endpoints
	r.Route("/things", func(r chi.Router) {
		r.Get("/", s.handleListThings)
		r.Post("/", s.handleCreateThing)

		r.Route("/{thingID}", func(r chi.Router) {
			r.Get("/", s.handleGetThing)
			r.Delete("/", s.handleDeleteThing)

			r.Put("/name", s.handleSetName)
			r.Put("/coordinates", s.handleSetCoordinates)
			r.Put("/capability", s.handleSetCapability)
			r.Put("/icon", s.handleSetIcon)

			r.Get("/events", s.handleListEvents)
			r.Post("/events", s.handleDispatchEvent)

			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"things":  s.registry.Count(),
	})
}
