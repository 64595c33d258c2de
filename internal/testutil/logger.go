// Package testutil provides helpers shared by package tests: loggers that
// write through testing.TB and a fake compile service.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes to t.Log().
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Entry is one captured log record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder captures log records for assertions. It also forwards every
// record to t.Log so failing tests show the full log.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	next    slog.Handler
}

// NewRecorder returns a Recorder and a logger writing into it.
func NewRecorder(t testing.TB) (*Recorder, *slog.Logger) {
	t.Helper()
	r := &Recorder{next: NewTestLogger(t).Handler()}
	return r, slog.New(&recordHandler{rec: r})
}

// Entries returns the records captured so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the messages logged at level or above.
func (r *Recorder) Messages(level slog.Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level >= level {
			out = append(out, e.Message)
		}
	}
	return out
}

type recordHandler struct {
	rec   *Recorder
	attrs []slog.Attr
	group string
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(ctx context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: make(map[string]string)}
	add := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		e.Attrs[key] = a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	rec.Attrs(add)

	h.rec.mu.Lock()
	h.rec.entries = append(h.rec.entries, e)
	h.rec.mu.Unlock()

	return h.rec.next.Handle(ctx, rec)
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}
