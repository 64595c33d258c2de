package playground

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/internal/ui/notifier"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// Handlers provides HTTP handlers for the playground feature.
type Handlers struct {
	catalog  *lesson.Catalog
	pipeline *pipeline.Pipeline
	boards   *Boards
	notifier *notifier.Notifier
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(catalog *lesson.Catalog, p *pipeline.Pipeline, boards *Boards, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		catalog:  catalog,
		pipeline: p,
		boards:   boards,
		notifier: notify,
		logger:   logger,
	}
}

// IndexPage lists the lessons.
func (h *Handlers) IndexPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderIndex(w, h.catalog.List()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// LessonPage renders one lesson with the session's current feedback.
func (h *Handlers) LessonPage(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Get(chi.URLParam(r, "lesson"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderLesson(w, l, h.boards.Peek(r)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// EvaluateSSE runs the pipeline for one pane and patches the feedback
// regions of every identifier the evaluation settled.
func (h *Handlers) EvaluateSSE(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Get(chi.URLParam(r, "lesson"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	origin, ok := l.Pane(chi.URLParam(r, "pane"))
	if !ok || origin.Hidden {
		http.Error(w, "unknown pane", http.StatusNotFound)
		return
	}

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals EvaluateSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "failed to read signals: "+err.Error(), http.StatusBadRequest)
		return
	}

	// the session cookie must be set before the event stream starts
	board, err := h.boards.For(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	req := buildRequest(l, origin, signals)
	sse := datastar.NewSSE(w, r)

	if err := h.patch(sse, feedback.View{}, req.Origin, propertyIDs(req.Properties)...); err != nil {
		h.logger.Debug("client went away", "error", err)
		return
	}

	round, err := h.pipeline.Evaluate(r.Context(), board, req)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	for _, rep := range round.Reports {
		if !rep.Applied {
			continue
		}
		if err := h.patch(sse, feedback.Render(rep.State), rep.Identifier); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
	}
}

// LessonUpdates is the long-lived SSE endpoint of a lesson page. It reloads
// the page when the lesson file changes.
func (h *Handlers) LessonUpdates(w http.ResponseWriter, r *http.Request) {
	h.updates(w, r, chi.URLParam(r, "lesson"))
}

// IndexUpdates reloads the index page when any lesson changes.
func (h *Handlers) IndexUpdates(w http.ResponseWriter, r *http.Request) {
	h.updates(w, r, notifier.All)
}

func (h *Handlers) updates(w http.ResponseWriter, r *http.Request, topic string) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(topic)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.ExecuteScript("window.location.reload()"); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, v feedback.View, ids ...string) error {
	var errs []error
	for _, id := range ids {
		fragment, err := RenderFeedback(id, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sse.PatchElements(fragment); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// buildRequest assembles the evaluation of origin from the lesson and the
// posted pane contents. Hidden panes always use the lesson source.
func buildRequest(l *lesson.Lesson, origin core.Pane, signals EvaluateSignals) pipeline.Request {
	contents := make(map[string]string)
	for _, p := range l.Visible() {
		if c, ok := signals.Panes[SignalKey(p.ID)]; ok {
			contents[p.ID] = c
		}
	}

	var extra string
	if origin.Kind != core.PaneBasic {
		extra = aggregate.Expression(signals.Expressions[SignalKey(origin.ID)])
	}

	return pipeline.Request{
		Lesson:     l.ID,
		Origin:     origin.ID,
		Panes:      core.WithContents(l.Panes, contents),
		Extra:      extra,
		Properties: l.PropertiesFor(origin.ID),
	}
}

func propertyIDs(props []core.Property) []string {
	ids := make([]string, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	return ids
}
