package history

import (
	"strconv"

	"github.com/leapstack-labs/psplay/pkg/core"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// parseLimit reads the limit query value, falling back to the default for
// anything that is not a positive integer.
func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

func formatDurationMS(ms int64) string {
	if ms < 1000 {
		return strconv.FormatInt(ms, 10) + "ms"
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return strconv.FormatFloat(secs, 'f', 1, 64) + "s"
	}
	mins := int(secs / 60)
	return strconv.Itoa(mins) + "m" + strconv.Itoa(int(secs)%60) + "s"
}

func roundDuration(r *core.Round) string {
	if r.CompletedAt == nil {
		return ""
	}
	return formatDurationMS(r.CompletedAt.Sub(r.StartedAt).Milliseconds())
}

// NewRoundItem converts a recorded round and its evaluations.
func NewRoundItem(r *core.Round, evals []*core.Evaluation) RoundItem {
	item := RoundItem{
		ID:          r.ID,
		Lesson:      r.Lesson,
		Origin:      r.Origin,
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Duration:    roundDuration(r),
		Error:       r.Error,
		Evaluations: make([]EvaluationItem, 0, len(evals)),
	}
	for _, e := range evals {
		ev := EvaluationItem{
			Identifier: e.Identifier,
			Status:     string(e.Status),
			Kind:       e.Kind,
			Message:    e.Message,
			Output:     e.Output,
			Attempts:   e.Attempts,
			Sequence:   e.Sequence,
		}
		if e.Status != core.EvaluationDiscarded {
			ev.Execution = formatDurationMS(e.ExecutionMS)
		}
		item.Evaluations = append(item.Evaluations, ev)
	}
	return item
}
