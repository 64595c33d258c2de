package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/psplay/internal/cli/testutil"
	"github.com/leapstack-labs/psplay/internal/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"version", "serve", "eval", "check", "repl", "history", "lessons", "completion"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "lessons-dir", "history", "compile-url", "bundle-url", "timeout", "attempts", "seed", "log-level", "log-format", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "psplay "+Version)

	stdout, _, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "psplay v"+Version)
}

func TestRootCmd_Completion(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "bash completion"},
		{"zsh", "#compdef psplay"},
		{"fish", "fish completion"},
		{"powershell", "Register-ArgumentCompleter"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			stdout, _, err := run(t, "completion", tt.shell)
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.want)
		})
	}

	_, _, err := run(t, "completion", "tcsh")
	require.Error(t, err)
}

func TestRootCmd_LoadsConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	service := testutil.NewCompileService(t)
	lessons := clitest.SetupTestLessons(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "psplay.yaml"), []byte(
		"compiler:\n  compile_url: "+service.CompileURL()+"\n  bundle_url: "+service.BundleURL()+"\n"+
			"history_path: \"off\"\n"+
			"output: markdown\n"), 0600))

	stdout, _, err := run(t, "--lessons-dir", lessons, "--seed", "3", "eval", "intro", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "### show: succeeded")
	assert.Equal(t, int64(1), service.Compiles())
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := run(t, "--compile-url", "not a url", "lessons")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiler.compile_url must be an http(s) URL")
}
