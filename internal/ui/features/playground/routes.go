package playground

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the playground feature.
func SetupRoutes(router chi.Router, h *Handlers) error {
	router.Get("/", h.IndexPage)
	router.Get("/lessons/{lesson}", h.LessonPage)

	router.Route("/api/lessons", func(r chi.Router) {
		r.Get("/updates", h.IndexUpdates)
		r.Get("/{lesson}/updates", h.LessonUpdates)
		r.Post("/{lesson}/panes/{pane}/evaluate", h.EvaluateSSE)
	})
	return nil
}
