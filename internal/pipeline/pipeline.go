// Package pipeline runs one evaluation round: aggregate the panes, compile
// the unit, link the artifact, execute it, check properties and settle the
// feedback of every identifier involved.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/linker"
	"github.com/leapstack-labs/psplay/internal/proptest"
	"github.com/leapstack-labs/psplay/internal/sandbox"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// Sentinel errors.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrInvalidRequest = errors.New("invalid evaluation request")
)

// Compiler turns a compilation unit into a diagnostic or an artifact.
type Compiler interface {
	Compile(ctx context.Context, unit core.CompilationUnit) (core.CompileResult, error)
}

// Bundles supplies the compiled runtime bundle.
type Bundles interface {
	Get(ctx context.Context) (*linker.Bundle, error)
}

// Config wires a Pipeline.
type Config struct {
	Compiler   Compiler
	Bundles    Bundles
	Aggregator *aggregate.Aggregator
	Executor   *sandbox.Executor
	Checker    *proptest.Runner
	// Attempts replaces a zero Property.Attempts. Zero keeps
	// core.DefaultAttempts.
	Attempts int
	// Store records rounds and evaluations. Optional.
	Store  core.Store
	Logger *slog.Logger
}

// Pipeline evaluates requests. It holds no per-request state and may be
// used concurrently; each evaluation loads its own runtime.
type Pipeline struct {
	compiler   Compiler
	bundles    Bundles
	aggregator *aggregate.Aggregator
	executor   *sandbox.Executor
	checker    *proptest.Runner
	attempts   int
	store      core.Store
	logger     *slog.Logger
}

// New creates a Pipeline. Compiler and Bundles are required; the other
// collaborators default to their zero configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Compiler == nil {
		return nil, fmt.Errorf("%w: compiler is required", ErrConfiguration)
	}
	if cfg.Bundles == nil {
		return nil, fmt.Errorf("%w: runtime bundle source is required", ErrConfiguration)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = aggregate.New(aggregate.DefaultPreamble())
	}
	if cfg.Executor == nil {
		cfg.Executor = sandbox.New(sandbox.Config{Logger: cfg.Logger})
	}
	if cfg.Checker == nil {
		cfg.Checker = proptest.New(proptest.Config{Logger: cfg.Logger})
	}
	return &Pipeline{
		compiler:   cfg.Compiler,
		bundles:    cfg.Bundles,
		aggregator: cfg.Aggregator,
		executor:   cfg.Executor,
		checker:    cfg.Checker,
		attempts:   cfg.Attempts,
		store:      cfg.Store,
		logger:     cfg.Logger,
	}, nil
}

// Request is one submit or run-test action.
type Request struct {
	Lesson string
	// Origin is the identifier of the pane that triggered the evaluation.
	Origin string
	Panes  []core.Pane
	// Extra is appended to the unit as its last statement (REPL panes).
	Extra string
	// Properties are checked against the loaded module, each reported
	// under its own identifier.
	Properties []core.Property
}

// Report is the settlement of one identifier.
type Report struct {
	Identifier string
	Ticket     feedback.Ticket
	// State is the identifier's state after settlement. When Applied is
	// false it is the state left by a newer request.
	State   feedback.State
	Applied bool
}

// Round summarises one evaluation.
type Round struct {
	ID       string
	Lesson   string
	Origin   string
	Unit     core.CompilationUnit
	Reports  []Report
	Duration time.Duration
}

// Report returns the report for id.
func (r *Round) Report(id string) (Report, bool) {
	for _, rep := range r.Reports {
		if rep.Identifier == id {
			return rep, true
		}
	}
	return Report{}, false
}

// Failed reports whether any applied identifier ended in Failed.
func (r *Round) Failed() bool {
	for _, rep := range r.Reports {
		if rep.Applied && rep.State.Phase == feedback.Failed {
			return true
		}
	}
	return false
}

// round carries the per-evaluation working state.
type round struct {
	*Round
	board   *feedback.Board
	tickets map[string]feedback.Ticket
	order   []string
	timings map[string]time.Duration

	// recorded is set once the store accepted the round.
	recorded bool
}

func (r *round) settle(id string, fn func(feedback.Ticket) (feedback.State, bool)) {
	st, ok := fn(r.tickets[id])
	r.Reports = append(r.Reports, Report{Identifier: id, Ticket: r.tickets[id], State: st, Applied: ok})
}

// Evaluate runs req and settles every identifier it names on board. Compile
// diagnostics, transport failures and runtime faults are reported through
// the board; the returned error is reserved for malformed requests.
//
// A compile diagnostic belongs to the source: it fails only the origin and
// returns the property identifiers to Idle, since no check ran. Every other
// failure that ends the round early (transport, bundle, link) fails all
// identifiers of the round with the same message.
func (p *Pipeline) Evaluate(ctx context.Context, board *feedback.Board, req Request) (*Round, error) {
	if req.Origin == "" {
		return nil, fmt.Errorf("%w: origin is required", ErrInvalidRequest)
	}
	if board == nil {
		return nil, fmt.Errorf("%w: feedback board is required", ErrInvalidRequest)
	}

	start := time.Now()
	r := &round{
		Round:   &Round{ID: uuid.NewString(), Lesson: req.Lesson, Origin: req.Origin},
		board:   board,
		tickets: make(map[string]feedback.Ticket),
		timings: make(map[string]time.Duration),
	}
	r.begin(req.Origin)
	for _, prop := range req.Properties {
		r.begin(prop.ID)
	}

	p.openRound(r)
	logger := p.logger.With("round", r.ID, "lesson", req.Lesson, "origin", req.Origin)

	r.Unit = p.aggregator.Aggregate(req.Panes, req.Extra)
	logger.Debug("compiling unit", "bytes", len(r.Unit.Source), "panes", len(req.Panes))

	runErr := p.run(ctx, r, req, logger)
	r.Duration = time.Since(start)

	p.closeRound(r, runErr, logger)
	logger.Info("evaluation finished",
		"duration", r.Duration,
		"failed", r.Failed(),
		"reports", len(r.Reports))
	return r.Round, nil
}

func (r *round) begin(id string) {
	if _, ok := r.tickets[id]; ok {
		return
	}
	r.tickets[id] = r.board.Begin(id)
	r.order = append(r.order, id)
}

// run executes the round and returns the failure that ended it early, if
// any, for the history record.
func (p *Pipeline) run(ctx context.Context, r *round, req Request, logger *slog.Logger) error {
	result, err := p.compiler.Compile(ctx, r.Unit)
	if err != nil {
		logger.Warn("compile request failed", "error", err)
		p.failAll(r, feedback.KindTransport, err.Error())
		return err
	}

	var artifact core.Artifact
	switch res := result.(type) {
	case core.Diagnostic:
		// Only the origin shows the diagnostic; properties go back to Idle.
		logger.Debug("compile diagnostic", "message", res.Message)
		r.settle(req.Origin, func(t feedback.Ticket) (feedback.State, bool) {
			return r.board.Fail(t, feedback.KindDiagnostic, res.Message)
		})
		for _, id := range r.order {
			if id != req.Origin {
				r.settle(id, r.board.Cancel)
			}
		}
		return errors.New(res.Message)
	case core.Artifact:
		artifact = res
	default:
		err := fmt.Errorf("unexpected compile result %T", result)
		p.failAll(r, feedback.KindTransport, err.Error())
		return err
	}

	bundle, err := p.bundles.Get(ctx)
	if err != nil {
		logger.Warn("runtime bundle unavailable", "error", err)
		p.failAll(r, feedback.KindTransport, err.Error())
		return err
	}

	unit, err := linker.Transform(artifact, bundle)
	if err != nil {
		logger.Warn("artifact does not link", "error", err)
		p.failAll(r, feedback.KindRuntime, err.Error())
		return err
	}
	if len(unit.Missing) > 0 {
		logger.Warn("artifact imports modules the runtime bundle lacks", "missing", unit.Missing)
	}

	if len(req.Properties) == 0 {
		started := time.Now()
		outcome := p.executor.Run(ctx, unit, nil)
		r.timings[req.Origin] = time.Since(started)
		r.settle(req.Origin, func(t feedback.Ticket) (feedback.State, bool) {
			return r.board.Succeed(t, outcome)
		})
		return outcomeError(outcome)
	}
	return p.runWithProperties(ctx, r, req, unit)
}

// runWithProperties loads the unit once, runs its entry point for the
// origin and checks every property against the same module.
func (p *Pipeline) runWithProperties(ctx context.Context, r *round, req Request, unit *linker.Unit) error {
	started := time.Now()
	originSink := &sandbox.LineSink{}
	mod, err := p.executor.Load(ctx, unit, originSink)
	if err != nil {
		p.failAll(r, feedback.KindRuntime, sandbox.Describe(err))
		return err
	}

	var origin core.ExecutionOutcome = mod.RunMain(ctx, originSink)
	if _, ok := origin.(core.Output); ok {
		origin = core.Output{Lines: originSink.Lines()}
	}
	r.timings[req.Origin] = time.Since(started)

	var firstErr error
	for _, prop := range req.Properties {
		if prop.Attempts == 0 {
			prop.Attempts = p.attempts
		}
		checkStart := time.Now()
		res := p.checker.Check(ctx, mod, prop, nil)
		r.timings[prop.ID] += time.Since(checkStart)

		if prop.ID == req.Origin {
			origin = mergeOrigin(origin, res)
			continue
		}
		r.settle(prop.ID, func(t feedback.Ticket) (feedback.State, bool) {
			return r.board.Succeed(t, res)
		})
		if err := outcomeError(res); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	r.settle(req.Origin, func(t feedback.Ticket) (feedback.State, bool) {
		return r.board.Succeed(t, origin)
	})
	if err := outcomeError(origin); err != nil {
		return err
	}
	return firstErr
}

// mergeOrigin folds a property result into the origin's outcome. A failed
// entry point keeps its fault; otherwise the property decides, with the
// entry point's output first.
func mergeOrigin(origin core.ExecutionOutcome, res core.TestResult) core.ExecutionOutcome {
	out, ok := origin.(core.Output)
	if !ok {
		return origin
	}
	lines := make([]string, 0, len(out.Lines)+len(res.Lines))
	lines = append(lines, out.Lines...)
	lines = append(lines, res.Lines...)
	res.Lines = lines
	return res
}

func (p *Pipeline) failAll(r *round, kind feedback.Kind, message string) {
	for _, id := range r.order {
		r.settle(id, func(t feedback.Ticket) (feedback.State, bool) {
			return r.board.Fail(t, kind, message)
		})
	}
}

func outcomeError(o core.ExecutionOutcome) error {
	switch v := o.(type) {
	case core.RuntimeError:
		return v
	case core.TestResult:
		if !v.Passed {
			return fmt.Errorf("counterexample after %d attempt(s): %s", v.Attempts, v.Counterexample)
		}
	}
	return nil
}
