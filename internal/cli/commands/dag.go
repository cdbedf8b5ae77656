package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/dag"
	"github.com/driftline-labs/hrflow/internal/pipeline"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "dag [stage]",
		Short: "Show the stage dependency graph",
		Long: `Display the pipeline's task graph: stages grouped by execution level
with their dependency relationships. With a stage argument, show which
stages a failure in that stage would skip.`,
		Example: `  # Show the DAG
  hrflow dag

  # What does a failure in clean reach?
  hrflow dag clean

  # Output as JSON
  hrflow dag --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			graph := pipeline.StageGraph(cfg.Publish.Enabled)

			if len(args) == 1 {
				return showStageClosure(cmd, graph, args[0], jsonOut)
			}

			levels, err := graph.ExecutionLevels()
			if err != nil {
				return fmt.Errorf("failed to get execution levels: %w", err)
			}

			out := cmd.OutOrStdout()

			if jsonOut {
				payload := map[string]any{
					"levels":   levels,
					"stages":   graph.NodeCount(),
					"edges":    graph.EdgeCount(),
					"entry":    graph.Roots(),
					"terminal": graph.Leaves(),
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			fmt.Fprintln(out, "Stage Graph")
			fmt.Fprintf(out, "Entry: %s\n", strings.Join(graph.Roots(), ", "))
			fmt.Fprintf(out, "Terminal: %s\n", strings.Join(graph.Leaves(), ", "))
			fmt.Fprintln(out)
			for i, level := range levels {
				fmt.Fprintf(out, "Level %d:\n", i)
				for _, stage := range level {
					fmt.Fprintf(out, "  %s\n", stage)
					if deps := graph.GetParents(stage); len(deps) > 0 {
						fmt.Fprintf(out, "    depends on: %s\n", strings.Join(deps, ", "))
					}
					if children := graph.GetChildren(stage); len(children) > 0 {
						fmt.Fprintf(out, "    used by: %s\n", strings.Join(children, ", "))
					}
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Total: %d stages, %d dependencies\n", graph.NodeCount(), graph.EdgeCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the graph as JSON")

	return cmd
}

// showStageClosure prints the downstream closure of one stage: the stage
// itself plus everything a failure in it would skip.
func showStageClosure(cmd *cobra.Command, graph *dag.Graph, stage string, jsonOut bool) error {
	if _, ok := graph.GetNode(stage); !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}

	closure := graph.Downstream([]string{stage})
	levels, err := graph.Subgraph(closure).ExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	out := cmd.OutOrStdout()

	if jsonOut {
		payload := map[string]any{
			"stage":      stage,
			"downstream": closure,
			"levels":     levels,
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Fprintf(out, "A failure in %s reaches %d stage(s):\n", stage, len(closure))
	for _, level := range levels {
		fmt.Fprintf(out, "  %s\n", strings.Join(level, ", "))
	}
	return nil
}
