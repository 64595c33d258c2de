// Package history serves the evaluation history recorded by the pipeline.
package history

import "time"

// RoundItem is one evaluation round as returned by the history API.
type RoundItem struct {
	ID          string           `json:"id"`
	Lesson      string           `json:"lesson"`
	Origin      string           `json:"origin"`
	Status      string           `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Duration    string           `json:"duration,omitempty"`
	Error       string           `json:"error,omitempty"`
	Evaluations []EvaluationItem `json:"evaluations"`
}

// EvaluationItem is the recorded outcome of one identifier.
type EvaluationItem struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Output     string `json:"output,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Sequence   uint64 `json:"sequence"`
	Execution  string `json:"execution,omitempty"`
}
