package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/hrschema"
)

const starterConfig = `# hrflow configuration

source:
  type: csv
  path: data/employees.csv
  # For a PostgreSQL source:
  # type: postgres
  # host: localhost
  # port: 5432
  # database: hr
  # user: hrflow
  # password: ${HR_SOURCE_PASSWORD}
  # table: hr_employees

warehouse:
  type: duckdb
  path: .hrflow/analytics.duckdb
  table: employees
  # For a PostgreSQL warehouse:
  # type: postgres
  # host: localhost
  # database: analytics

validation:
  # Leave empty to use the built-in employee suite, or point at a
  # suite YAML generated by "hrflow init".
  suite: suite.yaml
  sample_limit: 10

clean:
  # drop: discard uncoercible rows (logged); fail: abort the run
  on_bad_row: drop

publish:
  enabled: false
  addresses: ["http://localhost:9200"]
  index: hr-employees

state_path: .hrflow/state.db
output_dir: output
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new hrflow project",
		Long: `Initialize a project directory with a starter configuration and the
built-in validation suite:

  - hrflow.yaml  configuration file
  - suite.yaml   employee rule suite (editable)
  - data/        directory for source CSVs
  - output/      directory for pipeline artifacts`,
		Example: `  # Initialize the current directory
  hrflow init

  # Initialize a new directory
  hrflow init my-pipeline

  # Overwrite existing files
  hrflow init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "hrflow.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("hrflow.yaml already exists. Use --force to overwrite")
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write hrflow.yaml: %w", err)
	}

	suitePath := filepath.Join(dir, "suite.yaml")
	if err := hrschema.DefaultSuite().WriteFile(suitePath); err != nil {
		return fmt.Errorf("failed to write suite.yaml: %w", err)
	}

	for _, sub := range []string{"data", "output"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized hrflow project:")
	for _, f := range []string{"hrflow.yaml", "suite.yaml", "data/", "output/"} {
		fmt.Fprintf(out, "  %s\n", f)
	}
	fmt.Fprintln(out, "\nDrop an employee snapshot into data/ and run: hrflow run")
	return nil
}
