package playground

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"strings"

	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/ui/resources"
	"github.com/leapstack-labs/psplay/pkg/core"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type indexData struct {
	Title      string
	Script     string
	Stylesheet string
	Lessons    []*lesson.Lesson
}

type lessonData struct {
	Title      string
	Script     string
	Stylesheet string
	LessonID   string
	Signals    string
	Panes      []paneData
	Checks     []propertyData
}

type paneData struct {
	ID          string
	Key         string
	Kind        core.PaneKind
	Content     string
	Rows        int
	Console     bool
	EvaluateURL string
	Feedback    template.HTML
	Properties  []propertyData
}

type propertyData struct {
	ID        string
	Predicate string
	Feedback  template.HTML
}

func renderIndex(w io.Writer, lessons []*lesson.Lesson) error {
	return pages.ExecuteTemplate(w, "index", indexData{
		Title:      "Lessons",
		Script:     DatastarScript,
		Stylesheet: resources.StaticPath("app.css"),
		Lessons:    lessons,
	})
}

// renderLesson writes the lesson page. Feedback regions show what board
// currently holds, which may be nil for a new session.
func renderLesson(w io.Writer, l *lesson.Lesson, board *feedback.Board) error {
	view := func(id string) feedback.View {
		if board == nil {
			return feedback.View{}
		}
		return feedback.Render(board.State(id))
	}

	data := lessonData{
		Title:      l.Title,
		Script:     DatastarScript,
		Stylesheet: resources.StaticPath("app.css"),
		LessonID:   l.ID,
	}

	signals := EvaluateSignals{Panes: map[string]string{}, Expressions: map[string]string{}}
	for _, p := range l.Visible() {
		key := SignalKey(p.ID)
		signals.Panes[key] = p.Content
		console := p.Kind != core.PaneBasic
		if console {
			signals.Expressions[key] = ""
		}

		fb, err := feedbackHTML(p.ID, view(p.ID))
		if err != nil {
			return err
		}
		pd := paneData{
			ID:          p.ID,
			Key:         key,
			Kind:        p.Kind,
			Content:     p.Content,
			Rows:        rows(p.Content),
			Console:     console,
			EvaluateURL: "/api/lessons/" + l.ID + "/panes/" + p.ID + "/evaluate",
			Feedback:    fb,
		}
		for _, prop := range l.PropertiesOn(p.ID) {
			if prop.ID == p.ID {
				continue
			}
			pr, err := propertyView(prop, view)
			if err != nil {
				return err
			}
			pd.Properties = append(pd.Properties, pr)
		}
		data.Panes = append(data.Panes, pd)
	}
	for _, prop := range l.PropertiesOn("") {
		pr, err := propertyView(prop, view)
		if err != nil {
			return err
		}
		data.Checks = append(data.Checks, pr)
	}

	raw, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	data.Signals = string(raw)

	return pages.ExecuteTemplate(w, "lesson", data)
}

func propertyView(p core.Property, view func(string) feedback.View) (propertyData, error) {
	fb, err := feedbackHTML(p.ID, view(p.ID))
	if err != nil {
		return propertyData{}, err
	}
	return propertyData{ID: p.ID, Predicate: p.Predicate, Feedback: fb}, nil
}

func rows(content string) int {
	n := strings.Count(content, "\n") + 1
	if n < 3 {
		return 3
	}
	return n
}
