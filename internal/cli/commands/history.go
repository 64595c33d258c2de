package commands

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/ui/features/history"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// ErrHistoryDisabled is returned by history when no database is configured.
var ErrHistoryDisabled = errors.New("evaluation history is disabled")

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [round-id]",
		Short: "Show recent evaluations",
		Long: `Show the evaluation rounds recorded by serve, eval, check and repl.

Without arguments the most recent rounds are listed. With a round id the
outcome of every identifier settled in that round is shown.`,
		Example: `  # List the 10 most recent rounds
  psplay history --limit 10

  # Show one round as JSON
  psplay history 5f0c... -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of rounds to list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cc := NewCommandContext(cmd)
	if !cc.Cfg.HistoryEnabled() {
		return ErrHistoryDisabled
	}

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		return showRound(cc.Renderer, store, args[0])
	}

	rounds, err := store.ListRounds(opts.Limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		items := make([]history.RoundItem, 0, len(rounds))
		for _, round := range rounds {
			items = append(items, history.NewRoundItem(round, nil))
		}
		return r.JSON(items)
	}

	if len(rounds) == 0 {
		r.Println("No evaluations recorded.")
		return nil
	}

	styles := r.Styles()
	rows := make([][]string, 0, len(rounds))
	for _, round := range rounds {
		item := history.NewRoundItem(round, nil)
		rows = append(rows, []string{
			item.ID,
			item.Lesson,
			item.Origin,
			styles.Status(item.Status),
			item.StartedAt.Local().Format(time.DateTime),
			orDash(item.Duration),
		})
	}
	r.Table([]string{"Round", "Lesson", "Origin", "Status", "Started", "Duration"}, rows)
	return nil
}

func showRound(r *output.Renderer, store core.Store, id string) error {
	round, err := store.GetRound(id)
	if err != nil {
		return err
	}
	evals, err := store.GetEvaluationsForRound(id)
	if err != nil {
		return err
	}

	item := history.NewRoundItem(round, evals)
	if r.Mode() == output.ModeJSON {
		return r.JSON(item)
	}

	styles := r.Styles()
	r.Println(styles.Header1.Render("Round " + item.ID))
	r.Printf("Lesson:   %s\n", item.Lesson)
	r.Printf("Origin:   %s\n", item.Origin)
	r.Printf("Status:   %s\n", styles.Status(item.Status))
	r.Printf("Started:  %s\n", item.StartedAt.Local().Format(time.DateTime))
	r.Printf("Duration: %s\n", orDash(item.Duration))
	if item.Error != "" {
		r.Printf("Error:    %s\n", styles.Error.Render(item.Error))
	}
	r.Println()

	rows := make([][]string, 0, len(item.Evaluations))
	for _, e := range item.Evaluations {
		attempts := ""
		if e.Attempts > 0 {
			attempts = strconv.Itoa(e.Attempts)
		}
		detail := e.Message
		if detail == "" {
			detail = e.Output
		}
		rows = append(rows, []string{
			e.Identifier,
			styles.Status(e.Status),
			e.Kind,
			attempts,
			orDash(e.Execution),
			truncate(strings.ReplaceAll(detail, "\n", " "), maxDetailWidth),
		})
	}
	r.Table([]string{"Identifier", "Status", "Kind", "Attempts", "Time", "Detail"}, rows)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
