// Package linker prepares compiled artifacts for execution.
//
// Linkage is structural: the artifact is tokenised, every real
// require("<name>") call is rewritten to a lookup in the runtime bundle's
// module registry, and the result is wrapped in a module factory so that
// top-level bindings stay private to one load.
package linker

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// DefaultRegistry is the global the runtime bundle registers modules in.
const DefaultRegistry = "PS"

// DefaultName is the source name used for linked user artifacts.
const DefaultName = "Main"

// Unit is a linked, syntax-checked artifact ready to be loaded.
type Unit struct {
	Name string
	// Source is the wrapped module factory source.
	Source string
	// Imports are the normalised module names the artifact requires, in
	// order of first appearance.
	Imports []string
	// Missing lists imports the bundle does not provide.
	Missing []string
	Bundle  *Bundle

	program *goja.Program
}

// Program returns the compiled factory program. Running it yields the
// factory function.
func (u *Unit) Program() *goja.Program { return u.program }

// Transform links artifact against bundle. It does not execute anything.
func Transform(artifact core.Artifact, bundle *Bundle) (*Unit, error) {
	return TransformNamed(DefaultName, artifact, bundle)
}

// TransformNamed is Transform with an explicit source name for error
// positions.
func TransformNamed(name string, artifact core.Artifact, bundle *Bundle) (*Unit, error) {
	code := artifact.Code

	tokens, err := scan(code)
	if err != nil {
		return nil, &LinkError{Stage: "scan", Name: name, Err: err}
	}
	if hasModuleSyntax(tokens) {
		code, err = toCommonJS(name, code)
		if err != nil {
			return nil, err
		}
		if tokens, err = scan(code); err != nil {
			return nil, &LinkError{Stage: "scan", Name: name, Err: err}
		}
	}

	registry := DefaultRegistry
	if bundle != nil && bundle.Registry != "" {
		registry = bundle.Registry
	}

	linked, imports := rewriteRequires(code, tokens, registry)
	source := wrap(linked)

	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, &LinkError{Stage: "compile", Name: name, Err: err}
	}

	unit := &Unit{
		Name:    name,
		Source:  source,
		Imports: imports,
		Bundle:  bundle,
		program: program,
	}
	if bundle != nil {
		for _, imp := range imports {
			if !bundle.Provides(imp) {
				unit.Missing = append(unit.Missing, imp)
			}
		}
	}
	return unit, nil
}

// wrap turns linked module code into a factory expression taking the
// module record.
func wrap(code string) string {
	var b strings.Builder
	b.Grow(len(code) + 48)
	b.WriteString("(function (module, exports) {\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("})")
	return b.String()
}

// rewriteRequires replaces every require("<name>") call expression with a
// registry lookup and returns the rewritten code and the distinct module
// names in order of first appearance. Bytes outside rewritten calls are
// untouched.
func rewriteRequires(code string, tokens []token, registry string) (string, []string) {
	var (
		b       strings.Builder
		last    int
		imports []string
		seen    = make(map[string]bool)
	)
	for i := 0; i+3 < len(tokens); i++ {
		if !isRequireCall(tokens, i) {
			continue
		}
		name := ModuleName(stringValue(tokens[i+2]))
		b.WriteString(code[last:tokens[i].Start])
		b.WriteString(registry)
		b.WriteByte('[')
		b.WriteString(strconv.Quote(name))
		b.WriteByte(']')
		last = tokens[i+3].End
		if !seen[name] {
			seen[name] = true
			imports = append(imports, name)
		}
		i += 3
	}
	if last == 0 {
		return code, imports
	}
	b.WriteString(code[last:])
	return b.String(), imports
}

// isRequireCall reports whether tokens[i:i+4] is require ( "<string>" )
// and the call is not a member access.
func isRequireCall(tokens []token, i int) bool {
	t := tokens[i]
	if t.Kind != tokWord || t.Text != "require" {
		return false
	}
	if i > 0 {
		prev := tokens[i-1]
		if prev.Kind == tokPunct && prev.Text == "." {
			return false
		}
	}
	return tokens[i+1].Kind == tokPunct && tokens[i+1].Text == "(" &&
		tokens[i+2].Kind == tokString &&
		tokens[i+3].Kind == tokPunct && tokens[i+3].Text == ")"
}

// ModuleName normalises a require path to a registry key:
// "../Data.Foldable/index.js" becomes "Data.Foldable".
func ModuleName(path string) string {
	name := path
	for {
		switch {
		case strings.HasPrefix(name, "./"):
			name = name[2:]
			continue
		case strings.HasPrefix(name, "../"):
			name = name[3:]
			continue
		}
		break
	}
	name = strings.TrimSuffix(name, "/index.js")
	name = strings.TrimSuffix(name, ".js")
	name = strings.TrimSuffix(name, "/")
	return name
}
