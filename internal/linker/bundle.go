package linker

import (
	"sort"

	"github.com/dop251/goja"
)

// Bundle is the compiled runtime support code. It is compiled once and
// can be run in any number of runtimes.
type Bundle struct {
	// Registry is the global object name modules are registered under.
	Registry string
	Source   string

	program *goja.Program
	modules map[string]struct{}
}

// CompileBundle syntax-checks the runtime bundle and records the registry
// slots it defines.
func CompileBundle(source string) (*Bundle, error) {
	tokens, err := scan(source)
	if err != nil {
		return nil, &LinkError{Stage: "scan", Name: "bundle", Err: err}
	}
	program, err := goja.Compile("bundle", source, false)
	if err != nil {
		return nil, &LinkError{Stage: "compile", Name: "bundle", Err: err}
	}
	return &Bundle{
		Registry: DefaultRegistry,
		Source:   source,
		program:  program,
		modules:  registrations(tokens, DefaultRegistry),
	}, nil
}

// Program returns the compiled bundle program.
func (b *Bundle) Program() *goja.Program { return b.program }

// Provides reports whether the bundle registers module name. A bundle
// whose registrations could not be discovered provides everything.
func (b *Bundle) Provides(name string) bool {
	if len(b.modules) == 0 {
		return true
	}
	_, ok := b.modules[name]
	return ok
}

// Modules returns the registered module names, sorted.
func (b *Bundle) Modules() []string {
	names := make([]string, 0, len(b.modules))
	for name := range b.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registrations collects every registry["<name>"] slot mentioned in the
// bundle.
func registrations(tokens []token, registry string) map[string]struct{} {
	modules := make(map[string]struct{})
	for i := 0; i+3 < len(tokens); i++ {
		t := tokens[i]
		if t.Kind != tokWord || t.Text != registry {
			continue
		}
		if i > 0 && tokens[i-1].Kind == tokPunct && tokens[i-1].Text == "." {
			continue
		}
		if tokens[i+1].Text == "[" && tokens[i+2].Kind == tokString && tokens[i+3].Text == "]" {
			modules[stringValue(tokens[i+2])] = struct{}{}
		}
	}
	return modules
}
