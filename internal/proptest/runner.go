// Package proptest checks boolean predicates exported by a loaded module
// against randomly drawn inputs.
package proptest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/dop251/goja"

	"github.com/leapstack-labs/psplay/internal/sandbox"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// FailureMessage is written after the "Test <i> failed:" line. A predicate
// that throws is reported the same way as one that returns false.
const FailureMessage = "Failed: Test returned false"

// Config configures a Runner.
type Config struct {
	// Seed fixes the generator seed. Zero draws a new seed for every check.
	Seed   uint64
	Logger *slog.Logger
}

// Runner runs property checks.
type Runner struct {
	seed   uint64
	logger *slog.Logger
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{seed: cfg.Seed, logger: cfg.Logger}
}

// Check draws samples for p and applies its predicate until one fails or
// all attempts pass. Progress lines go to sink and are also returned in the
// result.
func (r *Runner) Check(ctx context.Context, mod *sandbox.Module, p core.Property, sink sandbox.Sink) core.TestResult {
	out := &tee{next: sink}
	seed := r.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	result := core.TestResult{Seed: seed}
	logger := r.logger.With("property", p.ID, "predicate", p.Predicate, "seed", seed)

	if err := p.Validate(); err != nil {
		out.Emit(err.Error())
		result.Lines = out.lines
		return result
	}
	if err := requireFunction(mod, p.Predicate); err != nil {
		out.Emit(err.Error())
		result.Lines = out.lines
		return result
	}
	if p.Generator.Via != "" {
		if err := requireFunction(mod, p.Generator.Via); err != nil {
			out.Emit(err.Error())
			result.Lines = out.lines
			return result
		}
	}

	gen := newGenerator(p.Generator, seed)
	attempts := p.EffectiveAttempts()
	rt := mod.Runtime()

	for i := 1; i <= attempts; i++ {
		drawn := gen.draw()
		ok, err := r.attempt(ctx, mod, rt, p, drawn, out)
		if err != nil {
			logger.Debug("predicate threw", "attempt", i, "input", drawn, "error", err)
		}
		if ok {
			continue
		}
		out.Emit(fmt.Sprintf("Test %d failed:", i))
		out.Emit(FailureMessage)
		result.Attempts = i
		result.Counterexample = fmt.Sprintf("%d", drawn)
		result.Lines = out.lines
		logger.Debug("counterexample found", "attempt", i, "input", drawn)
		return result
	}

	out.Emit(fmt.Sprintf("%d/%d test(s) passed.", attempts, attempts))
	result.Passed = true
	result.Attempts = attempts
	result.Lines = out.lines
	return result
}

// attempt applies the predicate to one drawn input. Anything but a boolean
// true is a failure.
func (r *Runner) attempt(ctx context.Context, mod *sandbox.Module, rt *goja.Runtime, p core.Property, drawn int, sink sandbox.Sink) (bool, error) {
	arg := rt.ToValue(drawn)
	if p.Generator.Via != "" {
		v, err := mod.Call(ctx, sink, p.Generator.Via, arg)
		if err != nil {
			return false, err
		}
		arg = v
	}
	v, err := mod.Call(ctx, sink, p.Predicate, arg)
	if err != nil {
		return false, err
	}
	b, isBool := v.Export().(bool)
	if !isBool {
		return false, fmt.Errorf("predicate %s returned %s, not a boolean", p.Predicate, v.String())
	}
	return b, nil
}

func requireFunction(mod *sandbox.Module, name string) error {
	v, err := mod.Export(name)
	if err != nil {
		return err
	}
	if _, ok := goja.AssertFunction(v); !ok {
		return fmt.Errorf("%w: %s", sandbox.ErrNotFunc, name)
	}
	return nil
}

// generator draws integers uniformly from [Min, Max]. Offsets are drawn as
// uint64 so any int range is representable; span zero means the full range.
type generator struct {
	min  int
	span uint64
	rng  *rand.Rand
}

func newGenerator(g core.Generator, seed uint64) *generator {
	return &generator{
		min:  g.Min,
		span: uint64(g.Max) - uint64(g.Min) + 1,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *generator) draw() int {
	if g.span == 0 {
		return int(g.rng.Uint64())
	}
	return int(uint64(g.min) + g.rng.Uint64N(g.span))
}

type tee struct {
	next  sandbox.Sink
	lines []string
}

func (t *tee) Emit(line string) {
	t.lines = append(t.lines, line)
	if t.next != nil {
		t.next.Emit(line)
	}
}
