package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/pkg/core"
)

const replPrompt = "psplay> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl <lesson> [pane]",
		Short: "Evaluate expressions against a lesson",
		Long: `Start an interactive session on a lesson.

Every line is an expression; it is logged from the entry point of a unit
built from the lesson panes, the way a REPL pane evaluates its input.
Dot commands inspect and edit the panes. Type .help for the list.`,
		Example: `  # Start a session on the folds lesson
  psplay repl folds

  # Attach the session to a specific pane
  psplay repl folds plus-fold`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeLessons,
		RunE:              runREPL,
	}
	return cmd
}

func runREPL(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	catalog, err := cc.LoadCatalog()
	if err != nil {
		return err
	}
	l, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cc.NewPipeline(store)
	if err != nil {
		return err
	}

	session, err := newREPLSession(l, p, cc.Renderer, args[1:]...)
	if err != nil {
		return err
	}

	var historyFile string
	if cc.Cfg.HistoryEnabled() && cc.Cfg.HistoryPath != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.HistoryPath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    session.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Printf("psplay REPL (lesson: %s, pane: %s)\n", l.ID, session.pane)
	cc.Renderer.Println("Type .help for commands, .quit to exit")
	cc.Renderer.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if session.handle(cmd.Context(), line) {
			break
		}
	}
	return nil
}

// replSession is the state of one REPL: the lesson, the edited pane
// contents and the pane expressions are evaluated against.
type replSession struct {
	lesson   *lesson.Lesson
	pipeline *pipeline.Pipeline
	out      *output.Renderer
	board    *feedback.Board

	pane     string
	contents map[string]string
}

func newREPLSession(l *lesson.Lesson, p *pipeline.Pipeline, out *output.Renderer, pane ...string) (*replSession, error) {
	s := &replSession{
		lesson:   l,
		pipeline: p,
		out:      out,
		board:    feedback.NewBoard(),
		contents: make(map[string]string),
	}
	if len(pane) > 0 {
		if _, ok := l.Pane(pane[0]); !ok {
			return nil, fmt.Errorf("lesson %s has no pane %q", l.ID, pane[0])
		}
		s.pane = pane[0]
		return s, nil
	}
	s.pane = defaultREPLPane(l)
	if s.pane == "" {
		return nil, fmt.Errorf("lesson %s has no visible panes", l.ID)
	}
	return s, nil
}

// defaultREPLPane is the last visible pane that takes REPL input, or the
// last visible pane.
func defaultREPLPane(l *lesson.Lesson) string {
	visible := l.Visible()
	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i].Kind != core.PaneBasic {
			return visible[i].ID
		}
	}
	if len(visible) == 0 {
		return ""
	}
	return visible[len(visible)-1].ID
}

// handle processes one input line and reports whether the session ends.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line)
	}
	s.evaluate(ctx, aggregate.Expression(line), nil)
	return false
}

func (s *replSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out.Out())

	case ".panes":
		s.listPanes()

	case ".pane":
		if len(parts) < 2 {
			s.out.Printf("Current pane: %s\n", s.pane)
			return false
		}
		if _, ok := s.lesson.Pane(parts[1]); !ok {
			s.out.Warnf("Unknown pane: %s", parts[1])
			return false
		}
		s.pane = parts[1]

	case ".show":
		id := s.pane
		if len(parts) > 1 {
			id = parts[1]
		}
		pane, ok := s.panes()[id]
		if !ok {
			s.out.Warnf("Unknown pane: %s", id)
			return false
		}
		s.out.Println(pane.Content)

	case ".load":
		if len(parts) < 3 {
			s.out.Warnf("Usage: .load <pane> <path>")
			return false
		}
		if _, ok := s.lesson.Pane(parts[1]); !ok {
			s.out.Warnf("Unknown pane: %s", parts[1])
			return false
		}
		data, err := os.ReadFile(parts[2]) //nolint:gosec // user supplied source file
		if err != nil {
			s.out.Warnf("Error: %v", err)
			return false
		}
		s.contents[parts[1]] = string(data)
		s.out.Printf("Loaded %s into %s\n", parts[2], parts[1])

	case ".reset":
		clear(s.contents)
		s.out.Println("Pane sources restored")

	case ".run":
		s.evaluate(ctx, "", nil)

	case ".check":
		props := s.lesson.PropertiesFor(s.pane)
		if len(props) == 0 {
			s.out.Println("No properties on this pane")
			return false
		}
		s.evaluate(ctx, "", props)

	default:
		s.out.Warnf("Unknown command: %s (type .help for commands)", command)
	}
	return false
}

func (s *replSession) panes() map[string]core.Pane {
	out := make(map[string]core.Pane, len(s.lesson.Panes))
	for _, p := range core.WithContents(s.lesson.Panes, s.contents) {
		out[p.ID] = p
	}
	return out
}

func (s *replSession) evaluate(ctx context.Context, extra string, props []core.Property) {
	round, err := s.pipeline.Evaluate(ctx, s.board, pipeline.Request{
		Lesson:     s.lesson.ID,
		Origin:     s.pane,
		Panes:      core.WithContents(s.lesson.Panes, s.contents),
		Extra:      extra,
		Properties: props,
	})
	if err != nil {
		s.out.Warnf("Error: %v", err)
		return
	}

	if len(props) > 0 {
		s.out.Table([]string{"Identifier", "Status", "Detail"}, roundRows(round, s.out.Styles()))
		return
	}
	rep, ok := round.Report(s.pane)
	if !ok || !rep.Applied {
		return
	}
	v := feedback.Render(rep.State)
	for _, line := range v.Results {
		s.out.Println(line)
	}
	if v.Error != "" {
		s.out.Println(s.out.Styles().Error.Render(v.Error))
	}
}

func (s *replSession) listPanes() {
	rows := make([][]string, 0, len(s.lesson.Panes))
	for _, p := range core.WithContents(s.lesson.Panes, s.contents) {
		marker := ""
		if p.ID == s.pane {
			marker = "*"
		}
		if _, edited := s.contents[p.ID]; edited {
			marker += "~"
		}
		rows = append(rows, []string{
			marker,
			p.ID,
			string(p.Kind),
			strconv.FormatBool(p.Hidden),
			strconv.Itoa(strings.Count(p.Content, "\n") + 1),
		})
	}
	s.out.Table([]string{"", "Pane", "Kind", "Hidden", "Lines"}, rows)
}

// completer completes dot commands and pane ids.
func (s *replSession) completer() *readline.PrefixCompleter {
	paneItems := func() []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, 0, len(s.lesson.Panes))
		for _, p := range s.lesson.Panes {
			items = append(items, readline.PcItem(p.ID))
		}
		return items
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".panes"),
		readline.PcItem(".pane", paneItems()...),
		readline.PcItem(".show", paneItems()...),
		readline.PcItem(".load", paneItems()...),
		readline.PcItem(".reset"),
		readline.PcItem(".run"),
		readline.PcItem(".check"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help               Show this help message
  .panes              List the lesson panes (* current, ~ edited)
  .pane [id]          Show or change the pane expressions are evaluated for
  .show [id]          Print a pane's source
  .load <id> <path>   Replace a pane's source with a file
  .reset              Restore the lesson's pane sources
  .run                Evaluate the panes without an expression
  .check              Check the properties of the current pane
  .quit / .exit       Exit the REPL

Tips:
  - Any other line is an expression, e.g. plusFold 1 2
  - Use arrow keys to navigate history
  - Tab completion works for commands and pane ids
`
	_, _ = fmt.Fprintln(w, help)
}
