package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/extract"
	"github.com/driftline-labs/hrflow/internal/pipeline"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	JSONOutput bool
	NoPublish  bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Execute every pipeline stage in dependency order:
extract -> clean -> validate -> load -> publish.

A failing stage skips everything downstream and marks the run failed.
Re-running the same snapshot replaces the loaded table instead of
duplicating rows.`,
		Example: `  # Run with the config file's source and warehouse
  hrflow run

  # Run from a local CSV into an in-memory DuckDB
  hrflow run --source-path data/employees.csv

  # Run without the publish stage
  hrflow run --no-publish

  # Machine-readable result for CI
  hrflow run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output the run result as JSON")
	cmd.Flags().BoolVar(&opts.NoPublish, "no-publish", false, "Skip the publish stage even when configured")
	cmd.Flags().String("source-path", "", "Override the source with a local CSV file")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger
	ctx := cmd.Context()

	if path, _ := cmd.Flags().GetString("source-path"); path != "" {
		cfg.Source = extract.Config{Type: "csv", Path: path}
	}
	if err := ensureOutputDir(cfg); err != nil {
		return err
	}

	source, err := extract.New(cfg.Source, logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	cleaner, err := buildCleaner(cfg, logger)
	if err != nil {
		return err
	}

	suite, err := loadSuite(cfg)
	if err != nil {
		return err
	}

	loader, adapter, err := buildLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = adapter.Close() }()

	pub, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pipeCfg := pipeline.Config{
		Source:    source,
		Cleaner:   cleaner,
		Suite:     suite,
		Evaluator: buildEvaluator(cfg, logger),
		Loader:    loader,
		Store:     store,
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	}
	if pub != nil && !opts.NoPublish {
		pipeCfg.Publisher = pub
	}

	p, err := pipeline.New(pipeCfg)
	if err != nil {
		return err
	}

	start := time.Now()
	result, runErr := p.Run(ctx)
	elapsed := time.Since(start)

	if result != nil {
		if opts.JSONOutput {
			if err := printRunJSON(cmd, result, runErr, elapsed); err != nil {
				return err
			}
		} else {
			printRunResult(cmd, result, elapsed)
		}
	}
	return runErr
}

func printRunResult(cmd *cobra.Command, result *pipeline.Result, elapsed time.Duration) {
	out := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Status", "Rows", "Duration"})
	for _, sr := range result.Stages {
		t.AppendRow(table.Row{sr.Name, string(sr.Status), sr.Rows, sr.Duration.Round(time.Millisecond)})
	}
	t.Render()

	fmt.Fprintf(out, "\nRun %s finished in %s\n", result.RunID, elapsed.Round(time.Millisecond))
	if result.Reloaded {
		fmt.Fprintln(out, "Snapshot was already loaded; table contents replaced.")
	}
	if result.Report != nil {
		fmt.Fprintf(out, "Validation: %d rule(s), %d hard failure(s), %d warning(s)\n",
			len(result.Report.Results), result.Report.HardFailures(), result.Report.Warnings())
	}
	if result.Loaded > 0 {
		fmt.Fprintf(out, "Loaded %d rows\n", result.Loaded)
	}
	if result.Published > 0 {
		fmt.Fprintf(out, "Published %d documents\n", result.Published)
	}
}

func printRunJSON(cmd *cobra.Command, result *pipeline.Result, runErr error, elapsed time.Duration) error {
	payload := map[string]any{
		"run_id":      result.RunID,
		"fingerprint": result.Fingerprint,
		"elapsed_ms":  elapsed.Milliseconds(),
		"reloaded":    result.Reloaded,
		"loaded":      result.Loaded,
		"published":   result.Published,
		"stages":      result.Stages,
	}
	if runErr != nil {
		payload["error"] = runErr.Error()
	}
	if result.Report != nil {
		payload["hard_failures"] = result.Report.HardFailures()
		payload["warnings"] = result.Report.Warnings()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
