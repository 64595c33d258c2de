package core

import "time"

// Store defines the interface for evaluation history.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Round operations
	CreateRound(lesson, origin string) (*Round, error)
	GetRound(id string) (*Round, error)
	CompleteRound(id string, status RoundStatus, errMsg string) error
	ListRounds(limit int) ([]*Round, error)

	// Evaluation operations
	RecordEvaluation(eval *Evaluation) error
	GetEvaluationsForRound(roundID string) ([]*Evaluation, error)
	GetLatestEvaluation(lesson, identifier string) (*Evaluation, error)
}

// RoundStatus represents the status of an evaluation round.
type RoundStatus string

// Round status constants.
const (
	RoundStatusRunning   RoundStatus = "running"
	RoundStatusCompleted RoundStatus = "completed"
	RoundStatusFailed    RoundStatus = "failed"
)

// Round is one submit or run-test action: one compilation, one artifact,
// one or more feedback identifiers.
type Round struct {
	ID          string
	Lesson      string
	Origin      string
	Status      RoundStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// EvaluationStatus is the final feedback phase recorded for an identifier.
type EvaluationStatus string

// Evaluation status constants.
const (
	EvaluationSucceeded EvaluationStatus = "succeeded"
	EvaluationFailed    EvaluationStatus = "failed"
	EvaluationDiscarded EvaluationStatus = "discarded"
)

// Evaluation is the outcome recorded for one identifier within a round.
type Evaluation struct {
	ID         string
	RoundID    string
	Lesson     string
	Identifier string
	Status     EvaluationStatus
	// Kind is the failure kind for failed evaluations.
	Kind     string
	Message  string
	Output   string
	Attempts int
	Sequence uint64
	// ExecutionMS is the wall time spent in the sandbox.
	ExecutionMS int64
	CreatedAt   time.Time
}
