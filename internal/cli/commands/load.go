package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/validate"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	var input, reportPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the validated snapshot into the warehouse",
		Long: `Replace the warehouse table with the cleaned batch. The load is gated
by the validation report: a missing report, hard failures, or a report
covering a different batch all refuse the load.`,
		Example: `  # Load using the artifacts of the last clean/validate
  hrflow load

  # Load explicit files
  hrflow load --input /tmp/clean.csv --report /tmp/report.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			if input == "" {
				input = artifactPath(cfg, "clean.csv")
			}
			if reportPath == "" {
				reportPath = artifactPath(cfg, "report.json")
			}

			cleaned, err := readCleanTable(input)
			if err != nil {
				return err
			}

			report, err := readReport(reportPath)
			if err != nil {
				return err
			}

			loader, adapter, err := buildLoader(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = adapter.Close() }()

			loaded, err := loader.Load(cmd.Context(), cleaned, report)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows\n", loaded)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Cleaned CSV file (default: <output-dir>/clean.csv)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Validation report (default: <output-dir>/report.json)")

	return cmd
}

// readReport loads a validation report from disk. A missing report returns
// nil so the loader's fail-closed gate refuses the batch.
func readReport(path string) (*validate.Report, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report validate.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}
