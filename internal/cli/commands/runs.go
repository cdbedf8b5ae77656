package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show pipeline run history",
		Long: `List recorded pipeline runs, newest first. With a run id, show that
run's per-stage results.`,
		Example: `  # List recent runs
  hrflow runs

  # Show one run's stages
  hrflow runs 2f1c9a6e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)

			store, err := openStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}
			return listRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}

func listRuns(cmd *cobra.Command, store state.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Status", "Snapshot", "Started", "Error"})
	for _, r := range runs {
		snapshot := r.Snapshot
		if len(snapshot) > 12 {
			snapshot = snapshot[:12]
		}
		t.AppendRow(table.Row{
			r.ID,
			string(r.Status),
			snapshot,
			r.StartedAt.Format(time.RFC3339),
			r.Error,
		})
	}
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, store state.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Snapshot: %s\n", run.Snapshot)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", run.CompletedAt.Format(time.RFC3339))
	}
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	fmt.Fprintln(out)

	stages, err := store.GetStageRuns(runID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Status", "Rows", "Duration", "Error"})
	for _, sr := range stages {
		t.AppendRow(table.Row{
			sr.Stage,
			string(sr.Status),
			sr.Rows,
			time.Duration(sr.DurationMS) * time.Millisecond,
			sr.Error,
		})
	}
	t.Render()
	return nil
}
