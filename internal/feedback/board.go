// Package feedback tracks the per-identifier result state shown next to each
// pane and property.
//
// Every evaluation takes a Ticket for each identifier it reports on. Only
// the ticket carrying the latest sequence number for an identifier may
// settle it, so a slow response to an earlier request can never overwrite
// the outcome of a later one.
package feedback

import (
	"maps"
	"strings"
	"sync"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// Phase is the lifecycle position of an identifier.
type Phase int

// Phases.
const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindDiagnostic     Kind = "diagnostic"
	KindTransport      Kind = "transport"
	KindRuntime        Kind = "runtime"
	KindCounterexample Kind = "counterexample"
)

// State is the feedback of one identifier.
type State struct {
	Phase Phase
	// Outcome is set when Phase is Succeeded.
	Outcome core.ExecutionOutcome
	// Kind and Message are set when Phase is Failed.
	Kind    Kind
	Message string
	// Seq is the sequence number of the ticket that produced this state.
	Seq uint64
}

// Ticket authorises one request to settle one identifier.
type Ticket struct {
	ID  string
	Seq uint64
}

// Board holds the feedback state of a set of identifiers. It is safe for
// concurrent use.
type Board struct {
	mu     sync.Mutex
	states map[string]State
	seq    map[string]uint64
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		states: make(map[string]State),
		seq:    make(map[string]uint64),
	}
}

// Begin clears id and marks it Pending under a new ticket. Earlier tickets
// for id become stale.
func (b *Board) Begin(id string) Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq[id]++
	t := Ticket{ID: id, Seq: b.seq[id]}
	b.states[id] = State{Phase: Pending, Seq: t.Seq}
	return t
}

// Succeed settles t with outcome. A RuntimeError outcome or a failed
// TestResult settles it as Failed instead. The returned bool is false when
// the ticket is stale or already settled; the state is then unchanged.
func (b *Board) Succeed(t Ticket, outcome core.ExecutionOutcome) (State, bool) {
	switch o := outcome.(type) {
	case core.RuntimeError:
		return b.Fail(t, KindRuntime, o.Message)
	case core.TestResult:
		if !o.Passed {
			return b.Fail(t, KindCounterexample, strings.Join(o.Lines, "\n"))
		}
	}
	return b.settle(t, State{Phase: Succeeded, Outcome: outcome, Seq: t.Seq})
}

// Fail settles t as Failed.
func (b *Board) Fail(t Ticket, kind Kind, message string) (State, bool) {
	return b.settle(t, State{Phase: Failed, Kind: kind, Message: message, Seq: t.Seq})
}

// Cancel returns a pending identifier to Idle.
func (b *Board) Cancel(t Ticket) (State, bool) {
	return b.settle(t, State{Phase: Idle, Seq: t.Seq})
}

func (b *Board) settle(t Ticket, next State) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.states[t.ID]
	if b.seq[t.ID] != t.Seq || cur.Phase != Pending {
		return cur, false
	}
	b.states[t.ID] = next
	return next, true
}

// State returns the current state of id. Unknown identifiers are Idle.
func (b *Board) State(id string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[id]
}

// Current reports whether t is still the latest ticket for its identifier.
func (b *Board) Current(t Ticket) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq[t.ID] == t.Seq
}

// Snapshot returns a copy of every known state.
func (b *Board) Snapshot() map[string]State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.states)
}
