// Package ui serves the lesson playground in the browser.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/internal/ui/notifier"
	"github.com/leapstack-labs/psplay/internal/ui/router"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// watchDebounce is how long the watcher waits for a burst of file events
// to settle before reloading lessons.
const watchDebounce = 100 * time.Millisecond

// Server is the main UI server.
type Server struct {
	catalog      *lesson.Catalog
	pipeline     *pipeline.Pipeline
	store        core.Store
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	dev          bool
	maxBoards    int
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Catalog  *lesson.Catalog
	Pipeline *pipeline.Pipeline
	// Store backs the history API. Optional.
	Store         core.Store
	Port          int
	Watch         bool
	Dev           bool
	SessionSecret string
	MaxBoards     int
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 7)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		catalog:      cfg.Catalog,
		pipeline:     cfg.Pipeline,
		store:        cfg.Store,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		maxBoards:    cfg.MaxBoards,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the router with every feature mounted.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5, "text/html", "text/css", "application/json", "image/svg+xml"),
	)
	if s.dev {
		r.Use(middleware.Logger)
	}

	err := router.SetupRoutes(r, router.Deps{
		Catalog:      s.catalog,
		Pipeline:     s.pipeline,
		Store:        s.store,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		MaxBoards:    s.maxBoards,
		Logger:       s.logger,
	}, s.dev)
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchLessons(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchLessons reloads the catalog when a lesson file changes and tells the
// pages showing that lesson to reload.
func (s *Server) watchLessons(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.catalog.Dir()); err != nil {
		s.logger.Error("failed to watch lessons directory", "error", err)
	}

	var (
		mu      sync.Mutex
		changed = make(map[string]struct{})
		timer   *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	flush := func() {
		mu.Lock()
		paths := changed
		changed = make(map[string]struct{})
		mu.Unlock()

		s.reloadLessons(paths)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !lesson.IsLessonFile(event.Name) {
				continue
			}

			mu.Lock()
			changed[filepath.Clean(event.Name)] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, flush)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reloadLessons reloads the catalog and notifies the listeners of the
// lessons loaded from paths. A path that no longer maps to a lesson pings
// everyone.
func (s *Server) reloadLessons(paths map[string]struct{}) {
	s.logger.Debug("lesson files changed, reloading", "files", len(paths))

	if err := s.catalog.Reload(); err != nil {
		s.logger.Error("failed to reload lessons", "error", err)
		return
	}

	byPath := make(map[string]string)
	for _, l := range s.catalog.List() {
		byPath[filepath.Clean(l.Path)] = l.ID
	}
	for path := range paths {
		id, ok := byPath[path]
		if !ok {
			s.notifier.Broadcast(notifier.All)
			return
		}
		s.notifier.Broadcast(id)
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
