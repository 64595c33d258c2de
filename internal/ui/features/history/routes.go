package history

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the history feature routes.
func SetupRoutes(router chi.Router, h *Handlers) error {
	router.Route("/api/history", func(r chi.Router) {
		r.Get("/", h.ListRounds)
		r.Get("/{id}", h.RoundDetail)
	})
	return nil
}
