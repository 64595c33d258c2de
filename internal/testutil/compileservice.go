package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
)

// RuntimeBundle is a minimal runtime bundle providing logShow.
const RuntimeBundle = `var PS = {};
PS["Control.Monad.Eff.Console"] = {
  logShow: function (x) {
    return function () { console.log(String(x)); return {}; };
  }
};
`

// CompileService is a fake of the remote compile service. It understands
// units that bind "x = <value>", log x or a literal from main and
// optionally declare predicates "name n = n >= k"; every other unit is
// rejected with a diagnostic.
type CompileService struct {
	*httptest.Server

	compiles atomic.Int64
	bundles  atomic.Int64
}

// NewCompileService starts a fake compile service closed at test cleanup.
func NewCompileService(t testing.TB) *CompileService {
	t.Helper()

	s := &CompileService{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /compile", s.compile)
	mux.HandleFunc("GET /bundle", s.bundle)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// CompileURL is the compile endpoint.
func (s *CompileService) CompileURL() string { return s.URL + "/compile" }

// BundleURL is the runtime bundle endpoint.
func (s *CompileService) BundleURL() string { return s.URL + "/bundle" }

// Compiles returns the number of compile requests served.
func (s *CompileService) Compiles() int64 { return s.compiles.Load() }

// Bundles returns the number of bundle requests served.
func (s *CompileService) Bundles() int64 { return s.bundles.Load() }

func (s *CompileService) compile(w http.ResponseWriter, r *http.Request) {
	s.compiles.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(compileUnit(string(body)))
}

func (s *CompileService) bundle(w http.ResponseWriter, _ *http.Request) {
	s.bundles.Add(1)
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = io.WriteString(w, RuntimeBundle)
}

// Declarations the fake understands.
var (
	mainDecl      = regexp.MustCompile(`^main = logShow (?:\$ )?(x|-?\d+)$`)
	predicateDecl = regexp.MustCompile(`^(\w+) n = n >= (-?\d+)$`)
)

// compileUnit plays the compiler for units binding x, printing x or an
// integer literal from main and declaring predicates of the form
// "name n = n >= k". The last main declaration wins.
func compileUnit(src string) map[string]any {
	var value, shown string
	var decls, exports []string
	for _, line := range strings.Split(src, "\n") {
		if v, ok := strings.CutPrefix(line, "x = "); ok {
			value = v
		}
		if m := mainDecl.FindStringSubmatch(line); m != nil {
			shown = m[1]
		}
		if m := predicateDecl.FindStringSubmatch(line); m != nil {
			decls = append(decls, fmt.Sprintf("var %s = function (n) { return n >= %s; };\n", m[1], m[2]))
			exports = append(exports, m[1]+": "+m[1])
		}
	}
	if shown == "" || value == "" {
		return map[string]any{"error": map[string]any{
			"tag":      "CompilerErrors",
			"contents": []map[string]any{{"message": "Unknown value main"}},
		}}
	}

	exports = append([]string{"x: x", "main: main"}, exports...)
	return map[string]any{"js": `"use strict";
var Control_Monad_Eff_Console = require("../Control.Monad.Eff.Console/index.js");
var x = ` + value + `;
var main = Control_Monad_Eff_Console.logShow(` + shown + `);
` + strings.Join(decls, "") + `module.exports = { ` + strings.Join(exports, ", ") + ` };
`}
}
