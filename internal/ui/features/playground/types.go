// Package playground serves lesson pages and evaluates their panes.
package playground

import (
	"strings"
)

// DatastarScript is the client runtime the pages load.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// EvaluateSignals are the client signals posted with an evaluation. Keys
// are signal keys as produced by SignalKey.
type EvaluateSignals struct {
	Panes       map[string]string `json:"panes"`
	Expressions map[string]string `json:"expr"`
}

// SignalKey turns an identifier into a name usable as a signal path
// segment: anything but ASCII letters and digits becomes an underscore.
func SignalKey(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Region element ids for an identifier.
func errorsID(id string) string  { return "errors-" + id }
func resultsID(id string) string { return "results-" + id }
func okID(id string) string      { return "ok-" + id }
func nokID(id string) string     { return "nok-" + id }
