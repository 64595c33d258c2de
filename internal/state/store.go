// Package state persists evaluation history in SQLite.
//
// Every evaluation round and the settlement of each identifier in it are
// recorded so that the CLI and the web UI can show recent results.
package state

import (
	"errors"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// Aliases for the history types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Round is an alias for core.Round.
	Round = core.Round

	// RoundStatus is an alias for core.RoundStatus.
	RoundStatus = core.RoundStatus

	// Evaluation is an alias for core.Evaluation.
	Evaluation = core.Evaluation

	// EvaluationStatus is an alias for core.EvaluationStatus.
	EvaluationStatus = core.EvaluationStatus
)

// Sentinel errors.
var (
	// ErrNotOpen is returned when the store is used before Open.
	ErrNotOpen = errors.New("database not opened")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// DefaultPath is the history database used when none is configured.
const DefaultPath = ".psplay/history.db"

var _ Store = (*SQLiteStore)(nil)
