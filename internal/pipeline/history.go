package pipeline

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// openRound records the start of a round. Store failures are logged and
// never affect the evaluation.
func (p *Pipeline) openRound(r *round) {
	if p.store == nil {
		return
	}
	rec, err := p.store.CreateRound(r.Lesson, r.Origin)
	if err != nil {
		p.logger.Warn("failed to record round", "lesson", r.Lesson, "origin", r.Origin, "error", err)
		return
	}
	r.ID = rec.ID
	r.recorded = true
}

func (p *Pipeline) closeRound(r *round, runErr error, logger *slog.Logger) {
	if !r.recorded {
		return
	}

	for _, rep := range r.Reports {
		eval := evaluationFor(r, rep)
		if err := p.store.RecordEvaluation(eval); err != nil {
			logger.Warn("failed to record evaluation", "identifier", rep.Identifier, "error", err)
		}
	}

	status := core.RoundStatusCompleted
	msg := ""
	if runErr != nil {
		status = core.RoundStatusFailed
		msg = runErr.Error()
	}
	if err := p.store.CompleteRound(r.ID, status, msg); err != nil {
		logger.Warn("failed to complete round", "error", err)
	}
}

func evaluationFor(r *round, rep Report) *core.Evaluation {
	eval := &core.Evaluation{
		RoundID:     r.ID,
		Lesson:      r.Lesson,
		Identifier:  rep.Identifier,
		Sequence:    rep.Ticket.Seq,
		ExecutionMS: r.timings[rep.Identifier].Milliseconds(),
	}
	if !rep.Applied {
		eval.Status = core.EvaluationDiscarded
		return eval
	}

	switch rep.State.Phase {
	case feedback.Failed:
		eval.Status = core.EvaluationFailed
		eval.Kind = string(rep.State.Kind)
		eval.Message = rep.State.Message
	case feedback.Succeeded:
		eval.Status = core.EvaluationSucceeded
		switch o := rep.State.Outcome.(type) {
		case core.Output:
			eval.Output = strings.Join(o.Lines, "\n")
		case core.TestResult:
			eval.Output = strings.Join(o.Lines, "\n")
			eval.Attempts = o.Attempts
		}
	default:
		// canceled property tickets
		eval.Status = core.EvaluationDiscarded
	}
	return eval
}
