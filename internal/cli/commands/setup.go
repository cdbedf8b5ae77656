// Package commands implements the hrflow subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/cli/config"
	"github.com/driftline-labs/hrflow/internal/extract"
	"github.com/driftline-labs/hrflow/internal/hrschema"
	"github.com/driftline-labs/hrflow/internal/publish"
	"github.com/driftline-labs/hrflow/internal/state"
	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/validate"
	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext resolves config and logger for a command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// getConfig returns the current configuration, falling back to defaults
// when no config has been loaded (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Source:    extract.Config{Type: "csv"},
		StatePath: config.DefaultStateFile,
		OutputDir: config.DefaultOutputDir,
	}
}

// openStore opens the run-state database, creating its directory.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// buildCleaner creates the cleaner from config.
func buildCleaner(cfg *config.Config, logger *slog.Logger) (*clean.Cleaner, error) {
	return clean.New(clean.Config{OnBadRow: cfg.BadRowPolicy(), Logger: logger})
}

// loadSuite loads the configured rule suite, or the built-in employee
// suite when none is configured.
func loadSuite(cfg *config.Config) (*validate.Suite, error) {
	if cfg.Validation.Suite == "" {
		return hrschema.DefaultSuite(), nil
	}
	return validate.LoadSuite(cfg.Validation.Suite)
}

// buildEvaluator creates the rule evaluator from config.
func buildEvaluator(cfg *config.Config, logger *slog.Logger) *validate.Evaluator {
	return validate.New(validate.Config{
		SampleLimit: cfg.Validation.SampleLimit,
		Concurrency: cfg.Validation.Concurrency,
		Logger:      logger,
	})
}

// connectWarehouse creates and connects the configured warehouse adapter.
// The caller owns the returned adapter and must Close it.
func connectWarehouse(ctx context.Context, cfg *config.Config, logger *slog.Logger) (warehouse.Adapter, error) {
	whCfg := cfg.Warehouse
	if whCfg.Type == "" {
		whCfg.Type = "duckdb"
	}

	adapter, err := warehouse.New(whCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx, whCfg); err != nil {
		return nil, err
	}
	return adapter, nil
}

// buildLoader connects the warehouse and wraps it in a loader.
func buildLoader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*warehouse.Loader, warehouse.Adapter, error) {
	adapter, err := connectWarehouse(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	loader, err := warehouse.NewLoader(warehouse.LoaderConfig{
		Adapter: adapter,
		Table:   cfg.Warehouse.Table,
		Logger:  logger,
	})
	if err != nil {
		_ = adapter.Close()
		return nil, nil, err
	}
	return loader, adapter, nil
}

// buildPublisher creates the publisher when publishing is enabled.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (*publish.Publisher, error) {
	if !cfg.Publish.Enabled {
		return nil, nil
	}
	return publish.New(cfg.Publish, logger)
}

// readCleanTable reads a cleaned CSV artifact and restores the typed
// employee layout. CSV stores every cell as text; without the retype the
// load and publish paths would see an all-string table and diverge from
// the run path's warehouse DDL and document types.
func readCleanTable(path string) (*table.Table, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return t.Retype(hrschema.TableColumns())
}

// ensureOutputDir creates the artifact directory.
func ensureOutputDir(cfg *config.Config) error {
	if cfg.OutputDir == "" {
		return nil
	}
	return os.MkdirAll(cfg.OutputDir, 0o750)
}

// artifactPath resolves a named artifact in the output directory.
func artifactPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.OutputDir, name)
}
