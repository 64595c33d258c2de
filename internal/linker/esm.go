package linker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// hasModuleSyntax reports whether the token stream contains a top-level
// import or export declaration.
func hasModuleSyntax(tokens []token) bool {
	for i, t := range tokens {
		if t.Kind != tokWord || (t.Text != "import" && t.Text != "export") {
			continue
		}
		if !atStatementStart(tokens, i) {
			continue
		}
		if i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]
		if next.Kind == tokPunct {
			switch next.Text {
			case "(", ".", ":", "=", ")", ",", ";":
				continue
			}
		}
		return true
	}
	return false
}

func atStatementStart(tokens []token, i int) bool {
	if i == 0 {
		return true
	}
	prev := tokens[i-1]
	return prev.Kind == tokPunct && (prev.Text == ";" || prev.Text == "}")
}

// toCommonJS converts an ES module artifact into CommonJS with esbuild so
// that imports become require calls the rewrite understands.
func toCommonJS(name, code string) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		Sourcefile: name + ".js",
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
				continue
			}
			msgs = append(msgs, m.Text)
		}
		return "", &LinkError{Stage: "esm", Name: name, Err: errors.New(strings.Join(msgs, "; "))}
	}
	return string(result.Code), nil
}
