package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/validate"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var input string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the cleaned snapshot",
		Long: `Evaluate the rule suite against the cleaned table and write the full
report to report.json. Every rule is evaluated and every violation is
counted; the command fails when any error-severity rule fails.`,
		Example: `  # Validate with the built-in employee suite
  hrflow validate

  # Validate against a custom suite
  hrflow validate --suite rules/strict.yaml

  # Machine-readable report
  hrflow validate --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			if input == "" {
				input = artifactPath(cfg, "clean.csv")
			}

			cleaned, err := readCleanTable(input)
			if err != nil {
				return err
			}

			suite, err := loadSuite(cfg)
			if err != nil {
				return err
			}

			report, err := buildEvaluator(cfg, logger).Evaluate(cmd.Context(), cleaned, suite)
			if err != nil {
				return err
			}

			if err := ensureOutputDir(cfg); err != nil {
				return err
			}
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(artifactPath(cfg, "report.json"), data, 0o644); err != nil {
				return err
			}

			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				report.Render(cmd.OutOrStdout())
			}

			if n := report.HardFailures(); n > 0 {
				return fmt.Errorf("%d hard validation failure(s): %w", n, validate.ErrFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Cleaned CSV file (default: <output-dir>/clean.csv)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")

	return cmd
}
