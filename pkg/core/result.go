package core

import "strings"

// CompileResult is the outcome of a compile request: either a Diagnostic or
// an Artifact.
type CompileResult interface {
	compileResult()
}

// Diagnostic is a compiler-reported rejection of a compilation unit.
// Only the first diagnostic of a response is kept.
type Diagnostic struct {
	Message  string
	Position *Position
}

// Artifact is compiled but unlinked JavaScript returned by the compiler.
type Artifact struct {
	Code string
}

func (Diagnostic) compileResult() {}
func (Artifact) compileResult()   {}

// ExecutionOutcome is the result of running an executable unit:
// Output, RuntimeError or TestResult.
type ExecutionOutcome interface {
	executionOutcome()
}

// Output holds the lines captured while a unit ran.
type Output struct {
	Lines []string
}

// Text returns the captured lines joined by newlines.
func (o Output) Text() string {
	return strings.Join(o.Lines, "\n")
}

// RuntimeError reports a fault raised while a unit ran.
type RuntimeError struct {
	Message string
}

// Error implements error so runtime faults can be returned where convenient.
func (e RuntimeError) Error() string {
	return e.Message
}

// TestResult summarises one property check.
type TestResult struct {
	Passed bool
	// Attempts is the number of samples drawn. On failure it is the index
	// (1-based) of the first counterexample.
	Attempts int
	// Counterexample describes the failing sample, if any.
	Counterexample string
	// Seed is the seed of the generator that drew the samples.
	Seed uint64
	// Lines holds what the check wrote to its sink.
	Lines []string
}

func (Output) executionOutcome()       {}
func (RuntimeError) executionOutcome() {}
func (TestResult) executionOutcome()   {}
