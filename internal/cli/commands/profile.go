package commands

import (
	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/profile"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show attrition statistics from the warehouse",
		Long: `Query the loaded employees table and print attrition breakdowns by
department, job role, income band, and tenure band.`,
		Example: `  # Profile the loaded table
  hrflow profile

  # JSON for dashboards or scripts
  hrflow profile --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

			adapter, err := connectWarehouse(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = adapter.Close() }()

			profiler, err := profile.New(profile.Config{
				Adapter: adapter,
				Table:   cfg.Warehouse.Table,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			report, err := profiler.Profile(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return report.RenderJSON(cmd.OutOrStdout())
			}
			report.Render(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the profile as JSON")

	return cmd
}
