// Package sandbox loads linked units into an embedded JavaScript runtime and
// runs them with captured output.
//
// Every Load creates a fresh runtime. A Module is bound to its runtime and
// must only be used from one goroutine at a time.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dop251/goja"

	"github.com/leapstack-labs/psplay/internal/linker"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// DefaultTimeout bounds a single call into the runtime.
const DefaultTimeout = 5 * time.Second

// MainExport is the entry point invoked by RunMain.
const MainExport = "main"

// Config configures an Executor.
type Config struct {
	// Timeout bounds each call into a runtime. Zero means DefaultTimeout;
	// negative disables the bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Executor loads and runs linked units.
type Executor struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Executor.
func New(cfg Config) *Executor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{timeout: cfg.Timeout, logger: cfg.Logger}
}

// Run loads unit and invokes its entry point. Every failure, including
// thrown exceptions, host panics and timeouts, is reported as a
// core.RuntimeError; Run never panics.
func (e *Executor) Run(ctx context.Context, unit *linker.Unit, sink Sink) core.ExecutionOutcome {
	rec := newRecorder(sink)
	mod, err := e.Load(ctx, unit, rec)
	if err != nil {
		return core.RuntimeError{Message: Describe(err)}
	}
	if err := mod.invokeMain(ctx, rec); err != nil {
		return core.RuntimeError{Message: Describe(err)}
	}
	return core.Output{Lines: rec.lines}
}

// Load creates a fresh runtime, runs the unit's bundle in it and calls the
// unit's module factory with a private module record. Output written while
// the module initialises goes to sink.
func (e *Executor) Load(ctx context.Context, unit *linker.Unit, sink Sink) (*Module, error) {
	if unit == nil || unit.Program() == nil {
		return nil, fmt.Errorf("load: %w", ErrBadFactory)
	}

	rt := goja.New()
	con, err := installConsole(rt)
	if err != nil {
		return nil, fmt.Errorf("install console: %w", err)
	}

	m := &Module{
		name:    unit.Name,
		rt:      rt,
		console: con,
		timeout: e.timeout,
		logger:  e.logger.With("unit", unit.Name),
	}

	start := time.Now()
	_, err = m.guard(ctx, sink, func() (goja.Value, error) {
		return nil, m.initialise(unit)
	})
	if err != nil {
		m.logger.Debug("load failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	m.logger.Debug("module loaded", "exports", len(m.exports.Keys()), "duration", time.Since(start))
	return m, nil
}

// Module is a loaded unit: its exports and optional entry point, bound to
// one runtime.
type Module struct {
	name    string
	rt      *goja.Runtime
	console *console
	timeout time.Duration
	logger  *slog.Logger

	exports *goja.Object
	main    goja.Callable
}

func (m *Module) initialise(unit *linker.Unit) error {
	registry := linker.DefaultRegistry
	if unit.Bundle != nil {
		registry = unit.Bundle.Registry
		if _, err := m.rt.RunProgram(unit.Bundle.Program()); err != nil {
			return fmt.Errorf("run bundle: %w", err)
		}
	}
	if v := m.rt.Get(registry); v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		if err := m.rt.Set(registry, m.rt.NewObject()); err != nil {
			return err
		}
	}

	value, err := m.rt.RunProgram(unit.Program())
	if err != nil {
		return err
	}
	factory, ok := goja.AssertFunction(value)
	if !ok {
		return ErrBadFactory
	}

	record := m.rt.NewObject()
	exports := m.rt.NewObject()
	if err := record.Set("exports", exports); err != nil {
		return err
	}
	if _, err := factory(goja.Undefined(), record, exports); err != nil {
		return err
	}

	// the factory may replace module.exports wholesale
	if v := record.Get("exports"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		m.exports = v.ToObject(m.rt)
	} else {
		m.exports = exports
	}
	if fn, ok := goja.AssertFunction(m.exports.Get(MainExport)); ok {
		m.main = fn
	}
	return nil
}

// Name returns the unit name the module was loaded from.
func (m *Module) Name() string { return m.name }

// Exports returns the exported names, sorted.
func (m *Module) Exports() []string {
	keys := m.exports.Keys()
	sort.Strings(keys)
	return keys
}

// HasMain reports whether the module exports a callable entry point.
func (m *Module) HasMain() bool { return m.main != nil }

// Export returns the named export.
func (m *Module) Export(name string) (goja.Value, error) {
	v := m.exports.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, fmt.Errorf("%w: %s", ErrNoExport, name)
	}
	return v, nil
}

// Runtime returns the runtime the module is bound to, for building
// argument values.
func (m *Module) Runtime() *goja.Runtime { return m.rt }

// RunMain invokes the entry point, when present, with output going to
// sink. A module without an entry point yields empty output.
func (m *Module) RunMain(ctx context.Context, sink Sink) core.ExecutionOutcome {
	rec := newRecorder(sink)
	if err := m.invokeMain(ctx, rec); err != nil {
		return core.RuntimeError{Message: Describe(err)}
	}
	return core.Output{Lines: rec.lines}
}

func (m *Module) invokeMain(ctx context.Context, sink Sink) error {
	if m.main == nil {
		return nil
	}
	_, err := m.guard(ctx, sink, func() (goja.Value, error) {
		return m.main(goja.Undefined())
	})
	return err
}

// Call invokes the named exported function with args, console output going
// to sink for the duration of the call.
func (m *Module) Call(ctx context.Context, sink Sink, name string, args ...goja.Value) (goja.Value, error) {
	v, err := m.Export(name)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunc, name)
	}
	return m.guard(ctx, sink, func() (goja.Value, error) {
		return fn(goja.Undefined(), args...)
	})
}

// guard runs fn with the console redirected to sink and the call bounded by
// ctx and the module timeout. The previous sink is restored and the
// runtime's interrupt flag cleared on every exit path; Go panics raised by
// host callbacks come back as *PanicError.
func (m *Module) guard(ctx context.Context, sink Sink, fn func() (goja.Value, error)) (v goja.Value, err error) {
	restore := m.console.Redirect(sink)
	defer restore()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		m.rt.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			<-fired
		}
		m.rt.ClearInterrupt()
	}()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("recovered panic in runtime", "panic", r)
			v, err = nil, &PanicError{Value: r}
		}
	}()

	v, err = fn()
	if err != nil {
		err = interruptError(err)
	}
	return v, err
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCanceled
}
