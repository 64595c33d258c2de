package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/psplay/internal/cli/testutil"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/testutil"
)

func newTestSession(t *testing.T, lessonID string, pane ...string) (*replSession, *clitest.TestRenderer) {
	t.Helper()

	cfg, _ := setupConfig(t)
	cfg.HistoryPath = "off"
	tr := clitest.NewTestRendererMarkdown()
	cc := &CommandContext{Cfg: cfg, Logger: testutil.NewTestLogger(t), Renderer: tr.Renderer}

	catalog, err := cc.LoadCatalog()
	require.NoError(t, err)
	l, err := catalog.Get(lessonID)
	require.NoError(t, err)
	p, err := cc.NewPipeline(nil)
	require.NoError(t, err)

	s, err := newREPLSession(l, p, tr.Renderer, pane...)
	require.NoError(t, err)
	return s, tr
}

func TestREPL_DefaultPane(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "last repl pane",
			yaml: "panes:\n  - id: a\n    kind: repl\n  - id: b\n  - id: c\n    kind: testable\n  - id: d\n",
			want: "c",
		},
		{
			name: "last visible pane",
			yaml: "panes:\n  - id: a\n  - id: b\n  - id: c\n    kind: repl\n    hidden: true\n",
			want: "b",
		},
		{
			name: "no visible pane",
			yaml: "panes:\n  - id: a\n    hidden: true\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := lesson.Parse([]byte(tt.yaml), "x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, defaultREPLPane(l))
		})
	}
}

func TestREPL_Expressions(t *testing.T) {
	s, tr := newTestSession(t, "intro")
	ctx := context.Background()
	assert.Equal(t, "value", s.pane)

	assert.False(t, s.handle(ctx, "5"))
	assert.Equal(t, "5\n", tr.Output())

	tr.Reset()
	assert.False(t, s.handle(ctx, "x"))
	assert.Equal(t, "1\n", tr.Output())

	tr.Reset()
	assert.False(t, s.handle(ctx, "   "))
	assert.Empty(t, tr.Output())
}

func TestREPL_EditPanes(t *testing.T) {
	s, tr := newTestSession(t, "intro")
	ctx := context.Background()

	s.handle(ctx, ".show")
	assert.Equal(t, "x = 1\n", tr.Output())

	tr.Reset()
	s.handle(ctx, ".load value "+writeSource(t, "x = 42"))
	assert.Contains(t, tr.Output(), "into value")

	tr.Reset()
	s.handle(ctx, "x")
	assert.Equal(t, "42\n", tr.Output())

	tr.Reset()
	s.handle(ctx, ".panes")
	assert.Contains(t, tr.Output(), "| *~ | value")

	tr.Reset()
	s.handle(ctx, ".reset")
	s.handle(ctx, ".run")
	assert.Contains(t, tr.Output(), "1\n")

	tr.Reset()
	s.handle(ctx, ".load value")
	assert.Contains(t, tr.ErrorOutput(), "Usage: .load <pane> <path>")
}

func TestREPL_Diagnostic(t *testing.T) {
	s, tr := newTestSession(t, "intro", "show")
	ctx := context.Background()

	s.handle(ctx, ".load show "+writeSource(t, "main = broken"))
	tr.Reset()
	s.handle(ctx, ".run")
	assert.Equal(t, "Unknown value main\n", tr.Output())
}

func TestREPL_Check(t *testing.T) {
	s, tr := newTestSession(t, "bounds")
	ctx := context.Background()
	assert.Equal(t, "show", s.pane)

	s.handle(ctx, ".check")
	out := tr.Output()
	assert.Contains(t, out, "| non-negative")
	assert.Contains(t, out, "| at-least-five | failed")

	tr.Reset()
	s.handle(ctx, ".pane value")
	s.handle(ctx, ".check")
	assert.Equal(t, "No properties on this pane\n", tr.Output())
}

func TestREPL_DotCommands(t *testing.T) {
	s, tr := newTestSession(t, "intro")
	ctx := context.Background()

	tests := []struct {
		line     string
		quit     bool
		wantOut  string
		wantWarn string
	}{
		{line: ".help", wantOut: ".load <id> <path>"},
		{line: ".pane", wantOut: "Current pane: value"},
		{line: ".pane nope", wantWarn: "Unknown pane: nope"},
		{line: ".show nope", wantWarn: "Unknown pane: nope"},
		{line: ".bogus", wantWarn: "Unknown command: .bogus"},
		{line: ".QUIT", quit: true},
		{line: ".exit", quit: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tr.Reset()
			assert.Equal(t, tt.quit, s.handle(ctx, tt.line))
			if tt.wantOut != "" {
				assert.Contains(t, tr.Output(), tt.wantOut)
			}
			if tt.wantWarn != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.wantWarn)
			}
		})
	}
}

func TestREPL_UnknownPaneArgument(t *testing.T) {
	cfg, _ := setupConfig(t)
	res := clitest.RunCommand(t, NewREPLCommand(), cfg, "intro", "nope")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), `no pane "nope"`)
}
