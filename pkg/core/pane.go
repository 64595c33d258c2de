package core

import (
	"fmt"
	"sort"
)

// PaneKind describes how a pane is presented on a lesson page.
type PaneKind string

// Pane kinds.
const (
	// PaneBasic is an editable pane with an error region.
	PaneBasic PaneKind = "basic"
	// PaneTestable is an editable pane with property indicators and a REPL input.
	PaneTestable PaneKind = "testable"
	// PaneREPL is an editable pane with a REPL input and no property indicators.
	PaneREPL PaneKind = "repl"
)

// Valid reports whether k is a known pane kind.
func (k PaneKind) Valid() bool {
	switch k {
	case PaneBasic, PaneTestable, PaneREPL:
		return true
	}
	return false
}

// Pane is one editable source fragment of a lesson.
type Pane struct {
	// ID is the stable identifier assigned by the lesson author.
	ID string
	// Content is a snapshot of the pane text taken at evaluation time.
	Content string
	// Order is the position among panes and determines aggregation order.
	Order int
	// Kind selects the feedback widgets rendered around the pane.
	Kind PaneKind
	// Hidden panes are aggregated but never shown to the learner.
	Hidden bool
}

// SortPanes returns a copy of panes ordered by Order.
// Panes sharing an Order keep their relative input order.
func SortPanes(panes []Pane) []Pane {
	out := make([]Pane, len(panes))
	copy(out, panes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// WithContents returns a copy of panes whose Content is replaced by the entry
// in contents with the same ID. Panes without an entry keep their content.
func WithContents(panes []Pane, contents map[string]string) []Pane {
	out := make([]Pane, len(panes))
	for i, p := range panes {
		if c, ok := contents[p.ID]; ok {
			p.Content = c
		}
		out[i] = p
	}
	return out
}

// CompilationUnit is the full source text submitted to the compiler for one
// evaluation. A new unit is built for every request.
type CompilationUnit struct {
	Source string
}

// String returns the unit source.
func (u CompilationUnit) String() string {
	return u.Source
}

// Position locates a diagnostic inside a compilation unit.
type Position struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// String formats the start of the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.StartLine, p.StartColumn)
}
