package linker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokTemplate
	tokRegex
	tokPunct
)

// token is a lexical element of a JavaScript source. Comments and
// whitespace are not tokens; Start and End are byte offsets.
type token struct {
	Kind  tokenKind
	Start int
	End   int
	Text  string
}

// regexKeywords are the words after which a slash starts a regular
// expression rather than a division.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// scanError reports an unterminated literal or comment.
type scanError struct {
	Offset int
	What   string
}

func (e *scanError) Error() string {
	return fmt.Sprintf("unterminated %s at offset %d", e.What, e.Offset)
}

// scan splits src into tokens. It understands enough of JavaScript to tell
// code apart from strings, template literals, comments and regular
// expression literals; it does not build a syntax tree.
func scan(src string) ([]token, error) {
	s := &scanner{src: src}
	for {
		tok, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return s.tokens, nil
		}
		s.tokens = append(s.tokens, tok)
	}
}

type scanner struct {
	src    string
	pos    int
	tokens []token
}

func (s *scanner) next() (token, bool, error) {
	if err := s.skipTrivia(); err != nil {
		return token{}, false, err
	}
	if s.pos >= len(s.src) {
		return token{}, false, nil
	}

	start := s.pos
	c := s.src[s.pos]
	switch {
	case c == '"' || c == '\'':
		if err := s.skipString(c); err != nil {
			return token{}, false, err
		}
		return s.emit(tokString, start), true, nil
	case c == '`':
		if err := s.skipTemplate(); err != nil {
			return token{}, false, err
		}
		return s.emit(tokTemplate, start), true, nil
	case c == '/' && s.regexAllowed():
		if err := s.skipRegex(); err != nil {
			return token{}, false, err
		}
		return s.emit(tokRegex, start), true, nil
	case isWordByte(c):
		for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
			s.pos++
		}
		return s.emit(tokWord, start), true, nil
	case c == '.' && len(s.src)-s.pos >= 3 && s.src[s.pos:s.pos+3] == "...":
		s.pos += 3
		return s.emit(tokPunct, start), true, nil
	default:
		s.pos++
		return s.emit(tokPunct, start), true, nil
	}
}

func (s *scanner) emit(kind tokenKind, start int) token {
	return token{Kind: kind, Start: start, End: s.pos, Text: s.src[start:s.pos]}
}

// skipTrivia advances past whitespace and comments.
func (s *scanner) skipTrivia() error {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.pos++
		case c == '/' && s.peek(1) == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.peek(1) == '*':
			start := s.pos
			s.pos += 2
			for {
				if s.pos+1 >= len(s.src) {
					return &scanError{Offset: start, What: "block comment"}
				}
				if s.src[s.pos] == '*' && s.src[s.pos+1] == '/' {
					s.pos += 2
					break
				}
				s.pos++
			}
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			if !isUnicodeSpace(r) {
				return nil
			}
			s.pos += size
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) skipString(quote byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case quote:
			s.pos++
			return nil
		case '\n':
			return &scanError{Offset: start, What: "string literal"}
		default:
			s.pos++
		}
	}
	return &scanError{Offset: start, What: "string literal"}
}

// skipTemplate advances past a template literal, including nested
// substitutions. Substitutions are treated as opaque.
func (s *scanner) skipTemplate() error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '`':
			s.pos++
			return nil
		case '$':
			if s.peek(1) == '{' {
				s.pos += 2
				if err := s.skipSubstitution(); err != nil {
					return err
				}
				continue
			}
			s.pos++
		default:
			s.pos++
		}
	}
	return &scanError{Offset: start, What: "template literal"}
}

// skipSubstitution advances past the expression of a ${...} substitution
// and its closing brace.
func (s *scanner) skipSubstitution() error {
	start := s.pos
	depth := 1
	for {
		if err := s.skipTrivia(); err != nil {
			return err
		}
		if s.pos >= len(s.src) {
			return &scanError{Offset: start, What: "template substitution"}
		}
		switch c := s.src[s.pos]; c {
		case '"', '\'':
			if err := s.skipString(c); err != nil {
				return err
			}
		case '`':
			if err := s.skipTemplate(); err != nil {
				return err
			}
		case '{':
			depth++
			s.pos++
		case '}':
			depth--
			s.pos++
			if depth == 0 {
				return nil
			}
		default:
			s.pos++
		}
	}
}

func (s *scanner) skipRegex() error {
	start := s.pos
	s.pos++
	inClass := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == '\n':
			return &scanError{Offset: start, What: "regular expression"}
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos++
			for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
				s.pos++
			}
			return nil
		}
		s.pos++
	}
	return &scanError{Offset: start, What: "regular expression"}
}

// regexAllowed reports whether a slash at the current position starts a
// regular expression, judging by the previous token.
func (s *scanner) regexAllowed() bool {
	if len(s.tokens) == 0 {
		return true
	}
	prev := s.tokens[len(s.tokens)-1]
	switch prev.Kind {
	case tokWord:
		return regexKeywords[prev.Text]
	case tokPunct:
		return prev.Text != ")" && prev.Text != "]" && prev.Text != "}"
	default:
		return false
	}
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= utf8.RuneSelf
}

func isUnicodeSpace(r rune) bool {
	switch r {
	case '\u00a0', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return false
}

// stringValue returns the value of a string literal token. Escapes the Go
// unquoter does not accept are returned as written.
func stringValue(tok token) string {
	text := tok.Text
	if len(text) < 2 {
		return ""
	}
	inner := text[1 : len(text)-1]

	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && i+1 < len(inner) && inner[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case c == '\\' && i+1 < len(inner):
			b.WriteByte(c)
			b.WriteByte(inner[i+1])
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')

	if v, err := strconv.Unquote(b.String()); err == nil {
		return v
	}
	return inner
}
