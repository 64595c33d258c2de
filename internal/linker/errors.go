package linker

import (
	"errors"
	"fmt"
)

// ErrLink is matched by every error the linker returns.
var ErrLink = errors.New("link failed")

// LinkError reports an artifact or bundle that could not be prepared for
// execution.
type LinkError struct {
	Stage string // scan, esm, compile
	Name  string
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s (%s): %v", e.Name, e.Stage, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLink) hold for any *LinkError.
func (e *LinkError) Is(target error) bool { return target == ErrLink }
