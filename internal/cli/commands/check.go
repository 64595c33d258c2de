package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [lesson...]",
		Short: "Check lesson properties",
		Long: `Check the properties declared by lessons against their shipped pane
sources. Each pane with attached properties is evaluated once; properties
attached to the whole lesson are checked with the first of them.

Use it to verify that lesson sources and properties agree before
publishing.`,
		Example: `  # Check every lesson
  psplay check

  # Check two lessons with a fixed seed
  psplay check folds recursion --seed 42`,
		ValidArgsFunction: completeLessons,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	catalog, err := cc.LoadCatalog()
	if err != nil {
		return err
	}

	lessons := catalog.List()
	if len(args) > 0 {
		lessons = lessons[:0:0]
		for _, id := range args {
			l, err := catalog.Get(id)
			if err != nil {
				return err
			}
			lessons = append(lessons, l)
		}
	}

	var requests []pipeline.Request
	for _, l := range lessons {
		requests = append(requests, checkRequests(l)...)
	}
	if len(requests) == 0 {
		cc.Renderer.Println("No properties to check.")
		return nil
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
	rounds := make([]*pipeline.Round, 0, len(requests))
	for _, req := range requests {
		round, err := p.Evaluate(cmd.Context(), board, req)
		if err != nil {
			return err
		}
		rounds = append(rounds, round)
	}

	return renderCheck(cc.Renderer, rounds)
}

// checkRequests plans the evaluations that cover every property of l.
func checkRequests(l *lesson.Lesson) []pipeline.Request {
	var requests []pipeline.Request
	for _, pane := range l.Panes {
		props := l.PropertiesOn(pane.ID)
		if len(props) == 0 {
			continue
		}
		requests = append(requests, pipeline.Request{
			Lesson:     l.ID,
			Origin:     pane.ID,
			Panes:      l.Panes,
			Properties: props,
		})
	}

	wide := l.PropertiesOn("")
	if len(wide) == 0 || len(l.Panes) == 0 {
		return requests
	}
	if len(requests) == 0 {
		return []pipeline.Request{{
			Lesson:     l.ID,
			Origin:     l.Panes[len(l.Panes)-1].ID,
			Panes:      l.Panes,
			Properties: wide,
		}}
	}
	requests[0].Properties = append(requests[0].Properties, wide...)
	return requests
}

func renderCheck(r *output.Renderer, rounds []*pipeline.Round) error {
	if r.Mode() == output.ModeJSON {
		if err := writeRounds(r, rounds); err != nil {
			return err
		}
		return failedErr(rounds)
	}

	styles := r.Styles()
	var rows [][]string
	passed, total := 0, 0
	for _, round := range rounds {
		for _, rep := range round.Reports {
			attempts := ""
			if tr, ok := rep.State.Outcome.(core.TestResult); ok {
				total++
				if tr.Passed {
					passed++
				}
				attempts = strconv.Itoa(tr.Attempts)
			} else if rep.Identifier != round.Origin {
				total++
			}
			rows = append(rows, []string{
				round.Lesson,
				rep.Identifier,
				styles.Status(statusOf(rep)),
				attempts,
				detailOf(rep),
			})
		}
	}
	r.Table([]string{"Lesson", "Identifier", "Status", "Attempts", "Detail"}, rows)
	r.Println()
	r.Printf("%d/%d properties passed\n", passed, total)
	return failedErr(rounds)
}
