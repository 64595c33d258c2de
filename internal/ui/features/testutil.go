// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/internal/bundle"
	"github.com/leapstack-labs/psplay/internal/compiler"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/internal/proptest"
	"github.com/leapstack-labs/psplay/internal/state"
	"github.com/leapstack-labs/psplay/internal/testutil"
	"github.com/leapstack-labs/psplay/internal/ui/notifier"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// IntroLesson is a lesson the fake compile service can evaluate: the value
// pane binds x and the basic pane prints it.
const IntroLesson = `title: Intro
panes:
  - id: value
    kind: repl
    source: "x = 1"
  - id: show
    source: "main = logShow x"
  - id: hidden
    hidden: true
    source: "-- setup"
`

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Catalog      *lesson.Catalog
	Pipeline     *pipeline.Pipeline
	Store        core.Store
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Service      *testutil.CompileService
	LessonsDir   string
}

// SetupTestFixture writes lessons (file name to YAML) into a temp directory
// and wires a pipeline against a fake compile service and an in-memory
// history store. With no lessons, IntroLesson is written as intro.yaml.
func SetupTestFixture(t *testing.T, lessons map[string]string) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	dir := t.TempDir()
	if len(lessons) == 0 {
		lessons = map[string]string{"intro.yaml": IntroLesson}
	}
	for name, content := range lessons {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}

	catalog, err := lesson.NewCatalog(dir, logger)
	require.NoError(t, err)

	service := testutil.NewCompileService(t)
	client, err := compiler.New(compiler.Config{
		CompileURL: service.CompileURL(),
		BundleURL:  service.BundleURL(),
		Timeout:    5 * time.Second,
		Logger:     logger,
	})
	require.NoError(t, err)

	store := SetupTestStore(t)

	p, err := pipeline.New(pipeline.Config{
		Compiler: client,
		Bundles:  bundle.New(client, logger),
		Checker:  proptest.New(proptest.Config{Seed: 1, Logger: logger}),
		Store:    store,
		Logger:   logger,
	})
	require.NoError(t, err)

	return &TestFixture{
		Catalog:      catalog,
		Pipeline:     p,
		Store:        store,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Service:      service,
		LessonsDir:   dir,
	}
}

// SetupTestStore creates an in-memory history store.
func SetupTestStore(t *testing.T) core.Store {
	t.Helper()

	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// RequestWithPathParams wraps a request with chi URL params given as
// key, value pairs.
func RequestWithPathParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout. The cancel
// function runs at test cleanup.
func RequestWithTimeout(t *testing.T, r *http.Request, timeout time.Duration) *http.Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	t.Cleanup(cancel)
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
