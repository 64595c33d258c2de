package playground

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/internal/ui/features"
	"github.com/leapstack-labs/psplay/internal/ui/notifier"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, nil)
	h := NewHandlers(
		fixture.Catalog,
		fixture.Pipeline,
		NewBoards(fixture.SessionStore, 0),
		fixture.Notifier,
		nil,
	)
	return h, fixture
}

func evaluateRequest(t *testing.T, lessonID, pane, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/lessons/"+lessonID+"/panes/"+pane+"/evaluate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = features.RequestWithPathParams(req, "lesson", lessonID, "pane", pane)
	return features.RequestWithTimeout(t, req, 5*time.Second)
}

// =============================================================================
// Page Tests
// =============================================================================

func TestIndexPage(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.IndexPage(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		`href="/lessons/intro"`,
		"Intro",
		"/api/lessons/updates",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
}

func TestLessonPage(t *testing.T) {
	tests := []struct {
		name       string
		lessonID   string
		wantStatus int
		wantBody   []string
		notBody    []string
	}{
		{
			name:       "renders visible panes with feedback regions",
			lessonID:   "intro",
			wantStatus: http.StatusOK,
			wantBody: []string{
				`id="pane-value"`,
				`id="pane-show"`,
				`data-bind="panes.value"`,
				`data-bind="expr.value"`,
				`/api/lessons/intro/panes/show/evaluate`,
				`id="errors-show"`,
				`id="results-value"`,
				`/api/lessons/intro/updates`,
			},
			notBody: []string{
				`id="pane-hidden"`,
				`data-bind="expr.show"`,
			},
		},
		{
			name:       "unknown lesson",
			lessonID:   "missing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandlers(t)

			req := httptest.NewRequest(http.MethodGet, "/lessons/"+tt.lessonID, nil)
			req = features.RequestWithPathParams(req, "lesson", tt.lessonID)
			rec := httptest.NewRecorder()

			h.LessonPage(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			for _, unwanted := range tt.notBody {
				assert.NotContains(t, body, unwanted)
			}
		})
	}
}

// =============================================================================
// EvaluateSSE Tests
// =============================================================================

func TestEvaluateSSE_PatchesResults(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.EvaluateSSE(rec, evaluateRequest(t, "intro", "show",
		`{"panes":{"value":"x = 7","show":"main = logShow x"},"expr":{"value":""}}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "event: datastar-patch-elements")
	assert.Contains(t, body, `<pre id="results-show" class="js-results">7</pre>`)
	assert.NotContains(t, body, "results-value", "only the origin is settled")
	assert.Equal(t, int64(1), fixture.Service.Compiles())

	rounds, err := fixture.Store.ListRounds(10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, "intro", rounds[0].Lesson)
	assert.Equal(t, "show", rounds[0].Origin)
}

func TestEvaluateSSE_Diagnostic(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.EvaluateSSE(rec, evaluateRequest(t, "intro", "show",
		`{"panes":{"value":"y = 7","show":"main = logShow x"}}`))

	body := rec.Body.String()
	assert.Contains(t, body, `id="errors-show"`)
	assert.Contains(t, body, "Unknown value main")
	assert.Contains(t, body, `id="nok-show" class="js-nok" src="/static/nok.svg" alt="failed"/>`)
}

func TestEvaluateSSE_SessionKeepsFeedback(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.EvaluateSSE(rec, evaluateRequest(t, "intro", "show",
		`{"panes":{"value":"x = 42","show":"main = logShow x"}}`))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "evaluation should start a session")

	req := httptest.NewRequest(http.MethodGet, "/lessons/intro", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req = features.RequestWithPathParams(req, "lesson", "intro")
	page := httptest.NewRecorder()
	h.LessonPage(page, req)

	assert.Contains(t, page.Body.String(), `<pre id="results-show" class="js-results">42</pre>`)

	// a request without the cookie sees a fresh page
	fresh := httptest.NewRecorder()
	h.LessonPage(fresh, features.RequestWithPathParams(httptest.NewRequest(http.MethodGet, "/lessons/intro", nil), "lesson", "intro"))
	assert.NotContains(t, fresh.Body.String(), ">42<")
}

func TestEvaluateSSE_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		lessonID   string
		pane       string
		body       string
		wantStatus int
	}{
		{"unknown lesson", "missing", "show", `{}`, http.StatusNotFound},
		{"unknown pane", "intro", "nope", `{}`, http.StatusNotFound},
		{"hidden pane", "intro", "hidden", `{}`, http.StatusNotFound},
		{"malformed signals", "intro", "show", `{"panes":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)

			rec := httptest.NewRecorder()
			h.EvaluateSSE(rec, evaluateRequest(t, tt.lessonID, tt.pane, tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Zero(t, fixture.Service.Compiles())
		})
	}
}

func TestBuildRequest(t *testing.T) {
	_, fixture := setupTestHandlers(t)
	l, err := fixture.Catalog.Get("intro")
	require.NoError(t, err)

	value, ok := l.Pane("value")
	require.True(t, ok)

	req := buildRequest(l, value, EvaluateSignals{
		Panes:       map[string]string{"value": "x = 3", "hidden": "x = 99"},
		Expressions: map[string]string{"value": " x + 1 "},
	})

	assert.Equal(t, "value", req.Origin)
	assert.Equal(t, "main = logShow $ x + 1", req.Extra)
	require.Len(t, req.Panes, 3)
	assert.Equal(t, "x = 3", req.Panes[0].Content)
	assert.Equal(t, "main = logShow x", req.Panes[1].Content, "missing signals keep the lesson source")
	assert.Equal(t, "-- setup", req.Panes[2].Content, "hidden panes cannot be overwritten")
}

// =============================================================================
// Updates Tests
// =============================================================================

func TestLessonUpdates_ReloadsOnBroadcast(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		wantReload bool
	}{
		{"same lesson", "intro", true},
		{"every lesson", notifier.All, true},
		{"other lesson", "folds", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)

			req := httptest.NewRequest(http.MethodGet, "/api/lessons/intro/updates", nil)
			req = features.RequestWithPathParams(req, "lesson", "intro")
			ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
			defer cancel()
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()

			done := make(chan struct{})
			go func() {
				h.LessonUpdates(rec, req)
				close(done)
			}()

			require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
			fixture.Notifier.Broadcast(tt.topic)
			<-done

			if tt.wantReload {
				assert.Contains(t, rec.Body.String(), "window.location.reload()")
			} else {
				assert.NotContains(t, rec.Body.String(), "window.location.reload()")
			}
			assert.Zero(t, fixture.Notifier.Len(), "listener should unsubscribe")
		})
	}
}

func TestIndexUpdates_NoInitialEvent(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/lessons/updates", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()

	h.IndexUpdates(rec, req.WithContext(ctx))

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
}
