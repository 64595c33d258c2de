package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Sentinel errors for executor failures.
var (
	ErrTimeout    = errors.New("execution timed out")
	ErrCanceled   = errors.New("execution canceled")
	ErrNoExport   = errors.New("export not found")
	ErrNotFunc    = errors.New("export is not a function")
	ErrHostPanic  = errors.New("host callback panicked")
	ErrBadFactory = errors.New("linked unit did not evaluate to a module factory")
)

// PanicError wraps a Go panic recovered while JavaScript was running.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrHostPanic, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrHostPanic }

// Describe renders err as the message of a runtime fault.
func Describe(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if v := ex.Value(); v != nil {
			return display(v)
		}
		return ex.Error()
	}
	return err.Error()
}

// interruptError maps the value passed to Runtime.Interrupt back to an
// executor error.
func interruptError(err error) error {
	var ie *goja.InterruptedError
	if !errors.As(err, &ie) {
		return err
	}
	switch cause, _ := ie.Value().(error); {
	case errors.Is(cause, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(cause, context.Canceled):
		return ErrCanceled
	}
	return err
}
