// Package core defines the shared language of the psplay system.
//
// This package contains:
//   - Domain entities (Pane, CompilationUnit, Property, Generator)
//   - Result unions (CompileResult, ExecutionOutcome)
//   - Persistence interface (Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
