package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/compiler"
)

// inTempDir runs the test from an empty directory so no psplay.yaml of the
// repository is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("lessons-dir", "", "")
	fs.String("history", "", "")
	fs.Duration("timeout", 0, "")
	fs.Int("port", 0, "")
	fs.Uint64("seed", 0, "")
	fs.String("log-level", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := inTempDir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, compiler.DefaultCompileURL, cfg.Compiler.CompileURL)
	assert.Equal(t, compiler.DefaultBundleURL, cfg.Compiler.BundleURL)
	assert.Equal(t, 30*time.Second, cfg.Compiler.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Execution.Timeout)
	assert.Equal(t, 100, cfg.Execution.Attempts)
	assert.Equal(t, aggregate.DefaultModule, cfg.Preamble.Module)
	assert.Equal(t, aggregate.DefaultImports, cfg.Preamble.Imports)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, filepath.Join(dir, DefaultLessonsDir), cfg.LessonsDir)
	assert.Equal(t, filepath.Join(dir, DefaultHistoryPath), cfg.HistoryPath)
	assert.True(t, cfg.HistoryEnabled())
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoad_Precedence(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "psplay.yaml"), []byte(`
lessons_dir: content
log_level: info
compiler:
  timeout: 10s
execution:
  timeout: 2s
  attempts: 50
server:
  port: 9000
preamble:
  module: Tutorial
  imports: [Prelude]
`), 0600))

	t.Setenv("PSPLAY_EXECUTION__ATTEMPTS", "25")
	t.Setenv("PSPLAY_SERVER__PORT", "9100")
	t.Setenv("PSPLAY_COMPILER__COMPILE_URL", "http://localhost:8081/compile")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--port", "9200", "--timeout", "750ms"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "psplay.yaml"), GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "content"), cfg.LessonsDir, "file value, resolved against the project root")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Compiler.Timeout)
	assert.Equal(t, "http://localhost:8081/compile", cfg.Compiler.CompileURL, "env overrides default")
	assert.Equal(t, 25, cfg.Execution.Attempts, "env overrides file")
	assert.Equal(t, 9200, cfg.Server.Port, "flag overrides env")
	assert.Equal(t, 750*time.Millisecond, cfg.Execution.Timeout, "flag overrides file")
	assert.Equal(t, "Tutorial", cfg.Preamble.Module)
	assert.Equal(t, []string{"Prelude"}, cfg.Preamble.Imports)
}

func TestLoad_FindsConfigUpward(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "psplay.yml"), []byte("lessons_dir: pages\n"), 0600))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "pages"), cfg.LessonsDir)
}

func TestLoad_PathFlagsResolveAgainstWorkingDirectory(t *testing.T) {
	dir := inTempDir(t)
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0750))
	cfgFile := filepath.Join(project, "psplay.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("lessons_dir: content\n"), 0600))

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--lessons-dir", "mine", "--history", "off"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, project, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "mine"), cfg.LessonsDir)
	assert.False(t, cfg.HistoryEnabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "malformed file",
			file:    "compiler: [",
			wantErr: "error reading config file",
		},
		{
			name:    "bad duration",
			file:    "execution:\n  timeout: soon\n",
			wantErr: "unable to decode config",
		},
		{
			name:    "bad url",
			env:     map[string]string{"PSPLAY_COMPILER__BUNDLE_URL": "ftp://example.com/bundle"},
			wantErr: "compiler.bundle_url must be an http(s) URL",
		},
		{
			name:    "zero attempts",
			env:     map[string]string{"PSPLAY_EXECUTION__ATTEMPTS": "0"},
			wantErr: "execution.attempts must be at least 1",
		},
		{
			name:    "unknown log format",
			env:     map[string]string{"PSPLAY_LOG_FORMAT": "xml"},
			wantErr: "log_format must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "psplay.yaml"), []byte(tt.file), 0600))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_WrapsErrInvalid(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "lessons_dir is required")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		logLevel  slog.Level
		wantLine  bool
		wantJSON  bool
	}{
		{"warn hides info", Config{LogLevel: "warn", LogFormat: "text"}, slog.LevelInfo, false, false},
		{"verbose shows info", Config{LogLevel: "warn", LogFormat: "text", Verbose: true}, slog.LevelInfo, true, false},
		{"debug json", Config{LogLevel: "debug", LogFormat: "json"}, slog.LevelDebug, true, true},
		{"unknown level falls back to warn", Config{LogLevel: "loud"}, slog.LevelWarn, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewLogger(&buf, &tt.cfg).Log(context.Background(), tt.logLevel, "hello")

			if !tt.wantLine {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "hello")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			}
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx), "a discard logger is returned without one in context")

	logger := slog.New(slog.DiscardHandler)
	assert.Same(t, logger, GetLogger(WithLogger(ctx, logger)))

	cfg := &Config{LessonsDir: "x"}
	assert.Same(t, cfg, GetConfig(WithConfig(ctx, cfg)))
}
