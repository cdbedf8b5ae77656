package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/table"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var input, out string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw snapshot",
		Long: `Normalize headers, drop constant columns, coerce types, deduplicate,
and derive the tenure/income/age buckets. Reads raw.csv and writes
clean.csv.

Rows that cannot be coerced follow the configured bad-row policy:
drop (default, logged) or fail.`,
		Example: `  # Clean the last extracted snapshot
  hrflow clean

  # Clean an explicit file
  hrflow clean --input /tmp/raw.csv --out /tmp/clean.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			if input == "" {
				input = artifactPath(cfg, "raw.csv")
			}
			if out == "" {
				if err := ensureOutputDir(cfg); err != nil {
					return err
				}
				out = artifactPath(cfg, "clean.csv")
			}

			raw, err := table.ReadFile(input)
			if err != nil {
				return err
			}

			cleaner, err := buildCleaner(cfg, logger)
			if err != nil {
				return err
			}

			cleaned, stats, err := cleaner.Clean(raw)
			if err != nil {
				return err
			}
			if err := cleaned.WriteFile(out); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %d rows to %s (%d deduped, %d dropped)\n",
				stats.RowsOut, out, stats.Deduped, stats.Dropped)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Raw CSV file (default: <output-dir>/raw.csv)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: <output-dir>/clean.csv)")

	return cmd
}
