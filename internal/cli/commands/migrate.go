package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply warehouse schema migrations",
		Long: `Apply the embedded schema migrations to a PostgreSQL warehouse.
DuckDB warehouses do not need migrations: the loader creates its table on
first load.`,
		Example: `  # Migrate the configured postgres warehouse
  hrflow migrate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)

			if err := warehouse.Migrate(cmd.Context(), cmdCtx.Cfg.Warehouse, cmdCtx.Logger); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Warehouse migrations applied")
			return nil
		},
	}
}
