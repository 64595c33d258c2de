package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var (
	logFormats = []string{"text", "json"}
	outputs    = []string{"auto", "text", "markdown", "md", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, a...)...))
	}

	for key, raw := range map[string]string{
		"compiler.compile_url": c.Compiler.CompileURL,
		"compiler.bundle_url":  c.Compiler.BundleURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("%s must be an http(s) URL, got %q", key, raw)
		}
	}
	if c.Compiler.Timeout <= 0 {
		add("compiler.timeout must be positive")
	}
	if c.Execution.Timeout <= 0 {
		add("execution.timeout must be positive")
	}
	if c.Execution.Attempts < 1 {
		add("execution.attempts must be at least 1")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if c.LessonsDir == "" {
		add("lessons_dir is required")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		add("unknown log_level %q", c.LogLevel)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		add("log_format must be one of %v", logFormats)
	}
	if !slices.Contains(outputs, c.Output) {
		add("output must be one of %v", outputs)
	}

	return errors.Join(errs...)
}
