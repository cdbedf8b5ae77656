package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/publish"
)

// NewPublishCommand creates the publish command.
func NewPublishCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the cleaned snapshot to Elasticsearch",
		Long: `Bulk-index the cleaned batch into the configured Elasticsearch index.
Document ids are employee numbers, so republishing overwrites instead of
duplicating.`,
		Example: `  # Publish the last cleaned snapshot
  hrflow publish

  # Publish an explicit file
  hrflow publish --input /tmp/clean.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			if len(cfg.Publish.Addresses) == 0 {
				return fmt.Errorf("no elasticsearch addresses configured")
			}

			if input == "" {
				input = artifactPath(cfg, "clean.csv")
			}
			cleaned, err := readCleanTable(input)
			if err != nil {
				return err
			}

			publisher, err := publish.New(cfg.Publish, logger)
			if err != nil {
				return err
			}

			indexed, err := publisher.Publish(cmd.Context(), cleaned)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %d documents\n", indexed)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Cleaned CSV file (default: <output-dir>/clean.csv)")

	return cmd
}
