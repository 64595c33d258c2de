package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// ErrEvaluationFailed is returned when an evaluation reported a failure.
// The failure itself has already been printed.
var ErrEvaluationFailed = errors.New("evaluation failed")

// maxDetailWidth bounds the detail column of result tables.
const maxDetailWidth = 72

// ReportResult is the JSON form of one settled identifier.
type ReportResult struct {
	Identifier string        `json:"identifier"`
	Status     string        `json:"status"`
	Kind       string        `json:"kind,omitempty"`
	Applied    bool          `json:"applied"`
	Attempts   int           `json:"attempts,omitempty"`
	Seed       uint64        `json:"seed,omitempty"`
	View       feedback.View `json:"view"`
}

// RoundResult is the JSON form of one evaluation round.
type RoundResult struct {
	ID         string         `json:"id"`
	Lesson     string         `json:"lesson"`
	Origin     string         `json:"origin"`
	DurationMS int64          `json:"duration_ms"`
	Failed     bool           `json:"failed"`
	Reports    []ReportResult `json:"reports"`
}

func toRoundResult(r *pipeline.Round) RoundResult {
	res := RoundResult{
		ID:         r.ID,
		Lesson:     r.Lesson,
		Origin:     r.Origin,
		DurationMS: r.Duration.Milliseconds(),
		Failed:     r.Failed(),
		Reports:    make([]ReportResult, 0, len(r.Reports)),
	}
	for _, rep := range r.Reports {
		item := ReportResult{
			Identifier: rep.Identifier,
			Status:     statusOf(rep),
			Kind:       string(rep.State.Kind),
			Applied:    rep.Applied,
			View:       feedback.Render(rep.State),
		}
		if tr, ok := rep.State.Outcome.(core.TestResult); ok {
			item.Attempts = tr.Attempts
			item.Seed = tr.Seed
		}
		res.Reports = append(res.Reports, item)
	}
	return res
}

// writeRounds writes rounds as a JSON array.
func writeRounds(r *output.Renderer, rounds []*pipeline.Round) error {
	results := make([]RoundResult, 0, len(rounds))
	for _, round := range rounds {
		results = append(results, toRoundResult(round))
	}
	return r.JSON(results)
}

// failedErr returns ErrEvaluationFailed when any round failed.
func failedErr(rounds []*pipeline.Round) error {
	for _, round := range rounds {
		if round.Failed() {
			return ErrEvaluationFailed
		}
	}
	return nil
}

// statusOf names the outcome of one report the way history records it.
func statusOf(rep pipeline.Report) string {
	if !rep.Applied {
		return string(core.EvaluationDiscarded)
	}
	switch rep.State.Phase {
	case feedback.Succeeded:
		return string(core.EvaluationSucceeded)
	case feedback.Failed:
		return string(core.EvaluationFailed)
	default:
		return string(core.EvaluationDiscarded)
	}
}

// detailOf is the one-line summary shown in result tables.
func detailOf(rep pipeline.Report) string {
	v := feedback.Render(rep.State)
	text := v.Error
	if text == "" {
		text = strings.Join(v.Results, " | ")
	}
	return truncate(strings.ReplaceAll(text, "\n", " "), maxDetailWidth)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// printRound writes the feedback of every applied identifier: the result
// lines or the error message under a heading per identifier.
func printRound(r *output.Renderer, round *pipeline.Round) {
	styles := r.Styles()
	for _, rep := range round.Reports {
		if !rep.Applied {
			continue
		}
		status := statusOf(rep)
		heading := rep.Identifier
		if rep.State.Kind != "" {
			heading = fmt.Sprintf("%s (%s)", heading, rep.State.Kind)
		}

		v := feedback.Render(rep.State)
		if r.Mode() == output.ModeText {
			r.Printf("%s %s\n", styles.Header2.Render(heading), styles.Status(status))
			for _, line := range v.Results {
				r.Println("  " + line)
			}
			if v.Error != "" {
				for _, line := range strings.Split(v.Error, "\n") {
					r.Println("  " + styles.Error.Render(line))
				}
			}
			continue
		}

		r.Printf("### %s: %s\n\n", heading, status)
		body := strings.Join(v.Results, "\n")
		if v.Error != "" {
			body = v.Error
		}
		if body != "" {
			r.Printf("```\n%s\n```\n\n", body)
		}
	}
}

// roundRows is one table row per report: identifier, status, detail.
func roundRows(round *pipeline.Round, styles *output.Styles) [][]string {
	rows := make([][]string, 0, len(round.Reports))
	for _, rep := range round.Reports {
		rows = append(rows, []string{rep.Identifier, styles.Status(statusOf(rep)), detailOf(rep)})
	}
	return rows
}
