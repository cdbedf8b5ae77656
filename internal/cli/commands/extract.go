package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/extract"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the raw employee snapshot",
		Long: `Read the raw employee batch from the configured source (PostgreSQL
or a local CSV) and write it to the output directory as raw.csv.`,
		Example: `  # Extract from the configured source
  hrflow extract

  # Extract a local CSV into a specific file
  hrflow extract --source-path data/employees.csv --out /tmp/raw.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			if path, _ := cmd.Flags().GetString("source-path"); path != "" {
				cfg.Source = extract.Config{Type: "csv", Path: path}
			}

			source, err := extract.New(cfg.Source, logger)
			if err != nil {
				return err
			}
			defer func() { _ = source.Close() }()

			raw, err := source.Extract(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" {
				if err := ensureOutputDir(cfg); err != nil {
					return err
				}
				out = artifactPath(cfg, "raw.csv")
			}
			if err := raw.WriteFile(out); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d rows to %s\n", raw.RowCount(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default: <output-dir>/raw.csv)")
	cmd.Flags().String("source-path", "", "Override the source with a local CSV file")

	return cmd
}
