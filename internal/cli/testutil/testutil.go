// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/cli/config"
	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/testutil"
)

// IntroLesson prints x from its show pane.
const IntroLesson = `title: Intro
panes:
  - id: value
    kind: repl
    source: "x = 1"
  - id: show
    source: "main = logShow x"
`

// BoundsLesson declares one property that holds and one that fails on the
// small generator.
const BoundsLesson = `title: Bounds
panes:
  - id: value
    source: "x = 3"
  - id: show
    kind: testable
    source: |
      main = logShow x
      atLeastZero n = n >= 0
      atLeastFive n = n >= 5
generators:
  small:
    min: 0
    max: 10
properties:
  - id: non-negative
    pane: show
    predicate: atLeastZero
    generator: small
  - id: at-least-five
    pane: show
    predicate: atLeastFive
    generator: small
    attempts: 20
`

// SetupTestLessons writes lessons (file name to YAML) into a temporary
// lessons directory. With no lessons, IntroLesson and BoundsLesson are
// written.
func SetupTestLessons(t *testing.T, lessons map[string]string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "lessons")
	require.NoError(t, os.MkdirAll(dir, 0750))
	if len(lessons) == 0 {
		lessons = map[string]string{"intro.yaml": IntroLesson, "bounds.yaml": BoundsLesson}
	}
	for name, content := range lessons {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

// NewTestConfig returns a configuration pointing at service and
// lessonsDir, with history in a temporary database and a fixed seed.
func NewTestConfig(t *testing.T, service *testutil.CompileService, lessonsDir string) *config.Config {
	t.Helper()

	return &config.Config{
		Compiler: config.CompilerConfig{
			CompileURL: service.CompileURL(),
			BundleURL:  service.BundleURL(),
			Timeout:    5 * time.Second,
		},
		Preamble: config.PreambleConfig{
			Module:  aggregate.DefaultModule,
			Imports: aggregate.DefaultImports,
		},
		Execution: config.ExecutionConfig{
			Timeout:  5 * time.Second,
			Attempts: 100,
			Seed:     1,
		},
		Server:      config.ServerConfig{Port: config.DefaultPort},
		LessonsDir:  lessonsDir,
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
		LogLevel:    "debug",
		LogFormat:   "text",
		Output:      string(output.ModeMarkdown),
	}
}

// CommandResult is the captured outcome of a command run.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// RunCommand executes cmd with args, cfg and a test logger in its context,
// and captures its output.
func RunCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) CommandResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)

	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
