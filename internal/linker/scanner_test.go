package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(tokens []token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func TestScan_Tokens(t *testing.T) {
	tokens, err := scan(`var a = "x" + 'y'; // tail
/* block */ f(...b);`)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"var", "a", "=", `"x"`, "+", `'y'`, ";", "f", "(", "...", "b", ")", ";"},
		texts(tokens))
}

func TestScan_RegexVersusDivision(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		regex bool
	}{
		{"after assignment", `x = /a/g`, true},
		{"after return", `return /a/`, true},
		{"after identifier", `x / a / g`, false},
		{"after call", `f() / 2`, false},
		{"after open paren", `f(/[/]/)`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := scan(tt.src)
			require.NoError(t, err)
			found := false
			for _, tok := range tokens {
				if tok.Kind == tokRegex {
					found = true
				}
			}
			assert.Equal(t, tt.regex, found)
		})
	}
}

func TestScan_TemplateSubstitutions(t *testing.T) {
	tokens, err := scan("a = `x ${ {b: `y ${c}`}.b } z`; d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "=", "`x ${ {b: `y ${c}`}.b } z`", ";", "d"}, texts(tokens))
}

func TestScan_Unterminated(t *testing.T) {
	for _, src := range []string{`"abc`, "`abc", "/* abc", "x = /abc\n"} {
		_, err := scan(src)
		assert.Error(t, err, src)
	}
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "a\"b", stringValue(token{Text: `"a\"b"`}))
	assert.Equal(t, `it's`, stringValue(token{Text: `'it\'s'`}))
}
