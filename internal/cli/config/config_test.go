package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline-labs/hrflow/internal/clean"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hrflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, clean.PolicyDrop, cfg.BadRowPolicy())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, `
source:
  type: postgres
  host: src.internal
  database: hr
warehouse:
  type: duckdb
  path: analytics.duckdb
  table: employees
validation:
  sample_limit: 5
clean:
  on_bad_row: fail
state_path: /tmp/hrflow-state.db
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.Equal(t, "src.internal", cfg.Source.Host)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, "analytics.duckdb", cfg.Warehouse.Path)
	assert.Equal(t, "employees", cfg.Warehouse.Table)
	assert.Equal(t, 5, cfg.Validation.SampleLimit)
	assert.Equal(t, clean.PolicyFail, cfg.BadRowPolicy())
	assert.Equal(t, "/tmp/hrflow-state.db", cfg.StatePath)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "warehouse:\n  type: duckdb\n")
	t.Setenv("HRFLOW_WAREHOUSE__TYPE", "postgres")
	t.Setenv("HRFLOW_STATE_PATH", "/tmp/env-state.db")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Warehouse.Type, "env var should override file")
	assert.Equal(t, "/tmp/env-state.db", cfg.StatePath)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	ResetConfig()

	t.Setenv("HRFLOW_STATE_PATH", "/tmp/env-state.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("output-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--state", "/tmp/flag-state.db", "--output-dir", "/tmp/out"}))

	cfg, err := LoadConfig(writeConfig(t, ""), flags)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/flag-state.db", cfg.StatePath, "flag should override env")
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
}

func TestLoadConfig_ExpandsCredentials(t *testing.T) {
	ResetConfig()

	t.Setenv("WAREHOUSE_PW", "s3cret")
	path := writeConfig(t, `
warehouse:
  type: postgres
  password: ${WAREHOUSE_PW}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Warehouse.Password)

	// Unknown variables stay verbatim so the misconfiguration is visible.
	path = writeConfig(t, "warehouse:\n  password: ${HRFLOW_NO_SUCH_VAR}\n")
	cfg, err = LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "${HRFLOW_NO_SUCH_VAR}", cfg.Warehouse.Password)
}

func TestGetCurrentConfig(t *testing.T) {
	ResetConfig()
	assert.Nil(t, GetCurrentConfig())

	cfg, err := LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.Same(t, cfg, GetCurrentConfig())
}
