// Package config loads the psplay CLI configuration: defaults, the
// psplay.yaml file, PSPLAY_ environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"slices"
	"time"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/compiler"
	"github.com/leapstack-labs/psplay/internal/sandbox"
	"github.com/leapstack-labs/psplay/internal/state"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// Default configuration values.
const (
	DefaultLessonsDir  = "lessons"
	DefaultHistoryPath = state.DefaultPath
	DefaultPort        = 8765
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // TTY=text, otherwise markdown

	// DevSessionSecret signs session cookies when no secret is configured.
	DevSessionSecret = "psplay-dev-secret-change-in-production" //nolint:gosec
)

// Config holds all CLI configuration options.
type Config struct {
	Compiler    CompilerConfig  `koanf:"compiler"`
	Preamble    PreambleConfig  `koanf:"preamble"`
	Execution   ExecutionConfig `koanf:"execution"`
	Server      ServerConfig    `koanf:"server"`
	LessonsDir  string          `koanf:"lessons_dir"`
	HistoryPath string          `koanf:"history_path"`
	LogLevel    string          `koanf:"log_level"`
	LogFormat   string          `koanf:"log_format"`
	Verbose     bool            `koanf:"verbose"`
	Output      string          `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// CompilerConfig locates the compile service.
type CompilerConfig struct {
	CompileURL string        `koanf:"compile_url"`
	BundleURL  string        `koanf:"bundle_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// PreambleConfig is the header prepended to every compilation unit.
type PreambleConfig struct {
	Module  string   `koanf:"module"`
	Imports []string `koanf:"imports"`
}

// ExecutionConfig bounds sandbox calls and property checks.
type ExecutionConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	// Attempts applies to properties that do not set their own.
	Attempts int `koanf:"attempts"`
	// Seed fixes the property generator seed; zero draws a fresh one.
	Seed uint64 `koanf:"seed"`
}

// ServerConfig configures psplay serve.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	Dev           bool   `koanf:"dev"`
	SessionSecret string `koanf:"session_secret"`
	MaxBoards     int    `koanf:"max_boards"`
}

// HistoryEnabled reports whether evaluations are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryPath != "" && c.HistoryPath != "off"
}

// defaults returns the default values keyed like the config file.
func defaults() map[string]any {
	return map[string]any{
		"compiler.compile_url":  compiler.DefaultCompileURL,
		"compiler.bundle_url":   compiler.DefaultBundleURL,
		"compiler.timeout":      compiler.DefaultTimeout.String(),
		"preamble.module":       aggregate.DefaultModule,
		"preamble.imports":      slices.Clone(aggregate.DefaultImports),
		"execution.timeout":     sandbox.DefaultTimeout.String(),
		"execution.attempts":    core.DefaultAttempts,
		"execution.seed":        0,
		"server.port":           DefaultPort,
		"server.watch":          true,
		"server.dev":            false,
		"server.session_secret": "",
		"server.max_boards":     1024,
		"lessons_dir":           DefaultLessonsDir,
		"history_path":          DefaultHistoryPath,
		"log_level":             DefaultLogLevel,
		"log_format":            DefaultLogFormat,
		"verbose":               false,
		"output":                DefaultOutput,
	}
}
