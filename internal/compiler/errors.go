package compiler

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrTransport indicates that a request to the compile service failed
	// before a compiler verdict was obtained: network failure, unexpected
	// status or an unparseable response.
	ErrTransport = errors.New("compile service transport failure")

	// ErrConfiguration indicates an invalid or incomplete client configuration.
	ErrConfiguration = errors.New("configuration error")
)

// TransportError describes a failed round-trip to the compile service.
type TransportError struct {
	// Op is the request that failed ("compile" or "bundle").
	Op string

	// URL is the endpoint that was called.
	URL string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

// Error returns a message naming the operation and endpoint.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s request to %s failed", e.Op, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// TransportError matches ErrTransport to allow sentinel-style error checking.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
