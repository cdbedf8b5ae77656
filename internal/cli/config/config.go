// Package config loads hrflow configuration from file, environment
// variables, and CLI flags.
package config

import (
	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/extract"
	"github.com/driftline-labs/hrflow/internal/publish"
	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// Defaults.
const (
	DefaultStateFile  = ".hrflow/state.db"
	DefaultOutputDir  = "output"
	DefaultConfigFile = "hrflow.yaml"
)

// ValidationConfig holds validator settings.
type ValidationConfig struct {
	// Suite is the path to a rule suite YAML. Empty uses the built-in
	// employee suite.
	Suite string `koanf:"suite"`
	// SampleLimit caps violation samples per rule.
	SampleLimit int `koanf:"sample_limit"`
	// Concurrency bounds parallel rule evaluation.
	Concurrency int `koanf:"concurrency"`
}

// CleanConfig holds cleaner settings.
type CleanConfig struct {
	// OnBadRow is the bad-row policy: drop or fail.
	OnBadRow string `koanf:"on_bad_row"`
}

// Config is the full hrflow configuration.
type Config struct {
	Source     extract.Config   `koanf:"source"`
	Warehouse  warehouse.Config `koanf:"warehouse"`
	Publish    publish.Config   `koanf:"publish"`
	Validation ValidationConfig `koanf:"validation"`
	Clean      CleanConfig      `koanf:"clean"`

	// StatePath is the run-state SQLite database.
	StatePath string `koanf:"state_path"`
	// OutputDir receives per-run artifacts (raw.csv, clean.csv,
	// report.json).
	OutputDir string `koanf:"output_dir"`

	Verbose bool `koanf:"verbose"`
}

// BadRowPolicy converts the configured policy string.
func (c *Config) BadRowPolicy() clean.BadRowPolicy {
	if c.Clean.OnBadRow == "" {
		return clean.PolicyDrop
	}
	return clean.BadRowPolicy(c.Clean.OnBadRow)
}
