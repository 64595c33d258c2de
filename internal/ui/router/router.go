// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	historyFeature "github.com/leapstack-labs/psplay/internal/ui/features/history"
	playgroundFeature "github.com/leapstack-labs/psplay/internal/ui/features/playground"
	"github.com/leapstack-labs/psplay/internal/ui/notifier"
	"github.com/leapstack-labs/psplay/internal/ui/resources"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// Deps are the collaborators the feature handlers share.
type Deps struct {
	Catalog      *lesson.Catalog
	Pipeline     *pipeline.Pipeline
	Store        core.Store
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	MaxBoards    int
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps, isDev bool) error {
	// Hot reload endpoint for dev mode
	if isDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())

	boards := playgroundFeature.NewBoards(deps.SessionStore, deps.MaxBoards)
	playground := playgroundFeature.NewHandlers(deps.Catalog, deps.Pipeline, boards, deps.Notifier, deps.Logger)
	if err := playgroundFeature.SetupRoutes(router, playground); err != nil {
		return err
	}

	// history is only served when evaluations are recorded
	if deps.Store != nil {
		if err := historyFeature.SetupRoutes(router, historyFeature.NewHandlers(deps.Store, deps.Logger)); err != nil {
			return err
		}
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Post("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
