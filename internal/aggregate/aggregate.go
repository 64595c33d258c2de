// Package aggregate builds compilation units out of lesson panes.
package aggregate

import (
	"strings"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// DefaultModule is the module every compilation unit declares.
const DefaultModule = "Main"

// DefaultImports is the closed import set available to every pane.
var DefaultImports = []string{
	"Prelude",
	"Data.Foldable (fold)",
	"Data.Int",
	"Control.Monad.Eff.Console (logShow)",
	"TryPureScript",
	"Test.QuickCheck (class Arbitrary, quickCheck)",
	"Test.QuickCheck.Gen (chooseInt)",
	"Unsafe.Coerce (unsafeCoerce)",
}

// undefinedDecl lets learners leave an expression unimplemented.
const undefinedDecl = "undefined :: forall a. a\nundefined = unsafeCoerce unit"

// Preamble is the fixed header prepended to every unit.
type Preamble struct {
	Module  string
	Imports []string
}

// DefaultPreamble returns the preamble used by the tutorial pages.
func DefaultPreamble() Preamble {
	imports := make([]string, len(DefaultImports))
	copy(imports, DefaultImports)
	return Preamble{Module: DefaultModule, Imports: imports}
}

// String renders the preamble without a trailing newline.
func (p Preamble) String() string {
	module := p.Module
	if module == "" {
		module = DefaultModule
	}

	var b strings.Builder
	b.WriteString("module ")
	b.WriteString(module)
	b.WriteString(" where\n\n")
	for _, imp := range p.Imports {
		b.WriteString("import ")
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	if len(p.Imports) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(undefinedDecl)
	return b.String()
}

// Aggregator concatenates pane contents into compilation units.
type Aggregator struct {
	preamble string
}

// New creates an Aggregator for the given preamble.
func New(p Preamble) *Aggregator {
	return &Aggregator{preamble: p.String()}
}

// Preamble returns the rendered preamble.
func (a *Aggregator) Preamble() string {
	return a.preamble
}

// Aggregate builds the unit for panes in page order. When extra is not empty
// it is appended as the unit's entry point.
//
// Parts are separated by exactly one blank line and the unit ends with a
// single newline. Leading blank lines and trailing newlines of each part are
// dropped first, keeping the indentation of its first line; parts that end up
// empty are skipped.
func (a *Aggregator) Aggregate(panes []core.Pane, extra string) core.CompilationUnit {
	parts := make([]string, 0, len(panes)+2)
	parts = appendPart(parts, a.preamble)
	for _, p := range core.SortPanes(panes) {
		parts = appendPart(parts, p.Content)
	}
	parts = appendPart(parts, extra)

	return core.CompilationUnit{Source: strings.Join(parts, "\n\n") + "\n"}
}

// Expression returns the entry statement that logs the value of expr.
func Expression(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	return "main = logShow $ " + expr
}

func appendPart(parts []string, s string) []string {
	s = strings.TrimRight(trimLeadingBlankLines(s), " \t\r\n")
	if s == "" {
		return parts
	}
	return append(parts, s)
}

func trimLeadingBlankLines(s string) string {
	for {
		line, rest, found := strings.Cut(s, "\n")
		if !found || strings.TrimSpace(line) != "" {
			return s
		}
		s = rest
	}
}
