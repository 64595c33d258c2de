package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/aggregate"
	"github.com/leapstack-labs/psplay/internal/bundle"
	"github.com/leapstack-labs/psplay/internal/cli/config"
	"github.com/leapstack-labs/psplay/internal/cli/output"
	"github.com/leapstack-labs/psplay/internal/compiler"
	"github.com/leapstack-labs/psplay/internal/lesson"
	"github.com/leapstack-labs/psplay/internal/pipeline"
	"github.com/leapstack-labs/psplay/internal/proptest"
	"github.com/leapstack-labs/psplay/internal/sandbox"
	"github.com/leapstack-labs/psplay/internal/state"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// LoadCatalog loads the lessons directory.
func (c *CommandContext) LoadCatalog() (*lesson.Catalog, error) {
	if _, err := os.Stat(c.Cfg.LessonsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("lessons directory does not exist: %s", c.Cfg.LessonsDir)
	}
	return lesson.NewCatalog(c.Cfg.LessonsDir, c.Logger)
}

// OpenStore opens the history database. With history disabled it returns
// a nil store. The cleanup function must be called (typically via defer).
func (c *CommandContext) OpenStore() (core.Store, func(), error) {
	if !c.Cfg.HistoryEnabled() {
		return nil, func() {}, nil
	}

	store := state.NewSQLiteStore()
	if err := store.Open(c.Cfg.HistoryPath); err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to prepare history: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// NewPipeline wires the evaluation pipeline from the configuration. store
// may be nil.
func (c *CommandContext) NewPipeline(store core.Store) (*pipeline.Pipeline, error) {
	client, err := compiler.New(compiler.Config{
		CompileURL: c.Cfg.Compiler.CompileURL,
		BundleURL:  c.Cfg.Compiler.BundleURL,
		Timeout:    c.Cfg.Compiler.Timeout,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Config{
		Compiler: client,
		Bundles:  bundle.New(client, c.Logger),
		Aggregator: aggregate.New(aggregate.Preamble{
			Module:  c.Cfg.Preamble.Module,
			Imports: c.Cfg.Preamble.Imports,
		}),
		Executor: sandbox.New(sandbox.Config{Timeout: c.Cfg.Execution.Timeout, Logger: c.Logger}),
		Checker:  proptest.New(proptest.Config{Seed: c.Cfg.Execution.Seed, Logger: c.Logger}),
		Attempts: c.Cfg.Execution.Attempts,
		Store:    store,
		Logger:   c.Logger,
	})
}

// completeLessons completes lesson ids for the first argument.
func completeLessons(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	lessons, err := lesson.LoadDir(cfg.LessonsDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
