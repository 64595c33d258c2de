package sandbox

import (
	"strings"
	"sync"
)

// Sink receives the lines a running unit writes through the console.
type Sink interface {
	Emit(line string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

// Emit calls f(line).
func (f SinkFunc) Emit(line string) { f(line) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(string) {})

// LineSink collects lines in memory.
type LineSink struct {
	mu    sync.Mutex
	lines []string
}

// Emit appends line.
func (s *LineSink) Emit(line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

// Lines returns a copy of the collected lines.
func (s *LineSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// String returns the collected lines joined by newlines.
func (s *LineSink) String() string {
	return strings.Join(s.Lines(), "\n")
}

// recorder forwards to another sink and keeps a copy of what it saw.
type recorder struct {
	next  Sink
	lines []string
}

func newRecorder(next Sink) *recorder {
	if next == nil {
		next = Discard
	}
	return &recorder{next: next}
}

func (r *recorder) Emit(line string) {
	r.lines = append(r.lines, line)
	r.next.Emit(line)
}
