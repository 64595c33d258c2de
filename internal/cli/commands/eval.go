package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	// Sources replace pane contents, as id=path pairs.
	Sources []string
	Expr    string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <lesson> [pane]",
		Short: "Evaluate lesson panes",
		Long: `Evaluate a lesson the way the playground does when a pane is submitted.

With a pane, that pane is the origin of one evaluation and the properties
attached to it are checked. Without one, every visible pane is evaluated
in page order. Pane sources come from the lesson file unless replaced
with --source.`,
		Example: `  # Evaluate every visible pane of a lesson
  psplay eval folds

  # Evaluate one pane with its source taken from a file
  psplay eval folds plus-fold --source plus-fold=./plus.purs

  # Evaluate an expression against a REPL pane
  psplay eval folds plus-fold --expr "plusFold 1 2"`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeLessons,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sources, "source", nil, "Replace a pane's source: id=path (- reads stdin)")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "Expression to log after the panes")

	return cmd
}

func runEval(cmd *cobra.Command, args []string, opts *EvalOptions) error {
	cc := NewCommandContext(cmd)

	catalog, err := cc.LoadCatalog()
	if err != nil {
		return err
	}
	l, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	contents, err := readSources(cmd.InOrStdin(), l, opts.Sources)
	if err != nil {
		return err
	}

	var origins []core.Pane
	if len(args) == 2 {
		p, ok := l.Pane(args[1])
		if !ok {
			return fmt.Errorf("lesson %s has no pane %q", l.ID, args[1])
		}
		origins = []core.Pane{p}
	} else {
		origins = l.Visible()
	}
	if opts.Expr != "" && len(origins) != 1 {
		return errors.New("--expr needs a single pane")
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

	board := feedback.NewBoard()
	panes := core.WithContents(l.Panes, contents)
	rounds := make([]*pipeline.Round, 0, len(origins))
	for _, origin := range origins {
		cc.Logger.Debug("evaluating pane", "lesson", l.ID, "pane", origin.ID)
		round, err := p.Evaluate(cmd.Context(), board, pipeline.Request{
			Lesson:     l.ID,
			Origin:     origin.ID,
			Panes:      panes,
			Extra:      aggregate.Expression(opts.Expr),
			Properties: l.PropertiesFor(origin.ID),
		})
		if err != nil {
			return err
		}
		rounds = append(rounds, round)
	}

	return renderRounds(cc.Renderer, rounds)
}

// renderRounds prints rounds and reports ErrEvaluationFailed when any of
// them failed.
func renderRounds(r *output.Renderer, rounds []*pipeline.Round) error {
	if r.Mode() == output.ModeJSON {
		if err := writeRounds(r, rounds); err != nil {
			return err
		}
		return failedErr(rounds)
	}
	for _, round := range rounds {
		printRound(r, round)
	}
	return failedErr(rounds)
}

// readSources reads the id=path replacements. "-" reads in, at most once.
func readSources(in io.Reader, l *lesson.Lesson, specs []string) (map[string]string, error) {
	contents := make(map[string]string, len(specs))
	stdinUsed := false
	for _, spec := range specs {
		id, path, ok := strings.Cut(spec, "=")
		if !ok || id == "" || path == "" {
			return nil, fmt.Errorf("invalid --source %q: want id=path", spec)
		}
		if _, ok := l.Pane(id); !ok {
			return nil, fmt.Errorf("lesson %s has no pane %q", l.ID, id)
		}

		var data []byte
		var err error
		if path == "-" {
			if stdinUsed {
				return nil, errors.New("only one --source may read stdin")
			}
			stdinUsed = true
			data, err = io.ReadAll(in)
		} else {
			data, err = os.ReadFile(path) //nolint:gosec // user supplied source file
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read source for pane %s: %w", id, err)
		}
		contents[id] = string(data)
	}
	return contents, nil
}
