// Package pipeline orchestrates the batch stages as a task graph:
// extract -> clean -> validate -> load -> publish. Each stage's outcome is
// recorded, a failed stage skips everything downstream, and re-running the
// same snapshot replaces rather than duplicates.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/dag"
	"github.com/driftline-labs/hrflow/internal/extract"
	"github.com/driftline-labs/hrflow/internal/publish"
	"github.com/driftline-labs/hrflow/internal/state"
	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/validate"
	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// Stage names, in dependency order.
const (
	StageExtract  = "extract"
	StageClean    = "clean"
	StageValidate = "validate"
	StageLoad     = "load"
	StagePublish  = "publish"
)

// Stage is one unit of pipeline work. Run reads its inputs from the
// environment and writes its outputs back.
type Stage interface {
	Name() string
	Run(ctx context.Context, env *Env) (rows int64, err error)
}

// Env carries intermediate artifacts between stages of one run.
type Env struct {
	Raw        *table.Table
	Cleaned    *table.Table
	CleanStats clean.Stats
	Report     *validate.Report
	Loaded     int64
	Published  int
}

// Config holds the pipeline's collaborators.
type Config struct {
	Source    extract.Source
	Cleaner   *clean.Cleaner
	Suite     *validate.Suite
	Evaluator *validate.Evaluator
	Loader    *warehouse.Loader

	// Publisher is optional. When nil the publish stage is omitted from
	// the graph.
	Publisher *publish.Publisher

	// Store records run history. Required: a pipeline without run state
	// cannot surface failures or detect re-runs.
	Store state.Store

	// OutputDir, when set, receives the per-run artifacts raw.csv,
	// clean.csv and report.json.
	OutputDir string

	Logger *slog.Logger
}

// StageResult is one stage's outcome within a result.
type StageResult struct {
	Name     string            `json:"name"`
	Status   state.StageStatus `json:"status"`
	Rows     int64             `json:"rows"`
	Err      string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID       string
	Fingerprint string
	Stages      []StageResult
	CleanStats  clean.Stats
	Report      *validate.Report
	Loaded      int64
	Published   int
	// Reloaded reports that this snapshot had already been loaded by an
	// earlier run. The load still replaces the table contents.
	Reloaded bool
}

// Pipeline executes the stage graph over one snapshot.
type Pipeline struct {
	cfg    Config
	graph  *dag.Graph
	stages map[string]Stage
	logger *slog.Logger
}

// New builds the pipeline and its task graph.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("pipeline requires a source")
	case cfg.Cleaner == nil:
		return nil, fmt.Errorf("pipeline requires a cleaner")
	case cfg.Suite == nil || cfg.Evaluator == nil:
		return nil, fmt.Errorf("pipeline requires a validation suite and evaluator")
	case cfg.Loader == nil:
		return nil, fmt.Errorf("pipeline requires a loader")
	case cfg.Store == nil:
		return nil, fmt.Errorf("pipeline requires a state store")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
		stages: map[string]Stage{},
	}

	stages := []Stage{
		&extractStage{source: cfg.Source},
		&cleanStage{cleaner: cfg.Cleaner},
		&validateStage{evaluator: cfg.Evaluator, suite: cfg.Suite},
		&loadStage{loader: cfg.Loader},
	}
	if cfg.Publisher != nil {
		stages = append(stages, &publishStage{publisher: cfg.Publisher})
	}

	g := dag.NewGraph()
	var prev string
	for _, s := range stages {
		g.AddNode(s.Name(), nil)
		if prev != "" {
			if err := g.AddEdge(prev, s.Name()); err != nil {
				return nil, err
			}
		}
		p.stages[s.Name()] = s
		prev = s.Name()
	}
	if cyclic, cycle := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("stage graph has a cycle: %v", cycle)
	}
	p.graph = g

	return p, nil
}

// Graph exposes the task graph for inspection (the dag command).
func (p *Pipeline) Graph() *dag.Graph { return p.graph }

// StageGraph builds the stage dependency graph on its own, for inspection
// without constructing collaborators.
func StageGraph(withPublish bool) *dag.Graph {
	names := []string{StageExtract, StageClean, StageValidate, StageLoad}
	if withPublish {
		names = append(names, StagePublish)
	}

	g := dag.NewGraph()
	var prev string
	for _, name := range names {
		g.AddNode(name, nil)
		if prev != "" {
			_ = g.AddEdge(prev, name)
		}
		prev = name
	}
	return g
}

// Run executes every stage in dependency order. The first stage failure
// marks downstream stages skipped, fails the run, and is returned; the
// partial result is returned alongside so callers can render what did
// happen.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	nodes, err := p.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	order := make([]string, len(nodes))
	for i, n := range nodes {
		order[i] = n.ID
	}

	env := &Env{}
	result := &Result{}

	// The snapshot fingerprint comes from the raw batch, so extraction
	// happens before the run row is created. An extraction failure is
	// still recorded as a failed run.
	extractErr := p.runStageInto(ctx, order[0], env, result)
	result.Fingerprint = fingerprint(env.Raw)

	run, err := p.cfg.Store.CreateRun(result.Fingerprint)
	if err != nil {
		return result, fmt.Errorf("failed to create run: %w", err)
	}
	result.RunID = run.ID

	if err := p.recordStage(run.ID, &result.Stages[0]); err != nil {
		return result, err
	}

	failedAt := -1
	var stageErr error
	if extractErr != nil {
		failedAt, stageErr = 0, extractErr
	} else {
		if prior, err := p.cfg.Store.GetSnapshot(result.Fingerprint); err != nil {
			return result, err
		} else if prior != nil {
			result.Reloaded = true
			p.logger.Info("snapshot already loaded, replacing",
				"fingerprint", result.Fingerprint, "previous_run", prior.RunID)
		}

		for i := 1; i < len(order); i++ {
			err := p.runStageInto(ctx, order[i], env, result)
			if recErr := p.recordStage(run.ID, &result.Stages[len(result.Stages)-1]); recErr != nil {
				return result, recErr
			}
			if err != nil {
				failedAt, stageErr = i, err
				break
			}
		}
	}

	result.CleanStats = env.CleanStats
	result.Report = env.Report
	result.Loaded = env.Loaded
	result.Published = env.Published

	if failedAt >= 0 {
		if err := p.skipStages(run.ID, order[failedAt+1:], result); err != nil {
			return result, err
		}
		if err := p.cfg.Store.CompleteRun(run.ID, state.RunStatusFailed, stageErr.Error()); err != nil {
			return result, err
		}
		return result, fmt.Errorf("stage %s failed: %w", order[failedAt], stageErr)
	}

	if err := p.cfg.Store.SaveSnapshot(result.Fingerprint, run.ID, int64(env.Cleaned.RowCount())); err != nil {
		return result, err
	}
	if err := p.cfg.Store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
		return result, err
	}

	p.logger.Info("run completed", "run", run.ID, "rows", env.Loaded)
	return result, nil
}

// runStageInto executes one stage, appends its StageResult, writes
// artifacts, and returns the stage error.
func (p *Pipeline) runStageInto(ctx context.Context, id string, env *Env, result *Result) error {
	stage := p.stages[id]
	p.logger.Info("stage starting", "stage", id)

	start := time.Now()
	rows, err := stage.Run(ctx, env)
	elapsed := time.Since(start)

	sr := StageResult{Name: id, Status: state.StageStatusSuccess, Rows: rows, Duration: elapsed}
	if err != nil {
		sr.Status = state.StageStatusFailed
		sr.Err = err.Error()
		p.logger.Error("stage failed", "stage", id, "error", err)
	} else {
		p.logger.Info("stage finished", "stage", id, "rows", rows, "elapsed", elapsed)
		if artErr := p.writeArtifact(id, env); artErr != nil {
			sr.Status = state.StageStatusFailed
			sr.Err = artErr.Error()
			err = artErr
		}
	}
	result.Stages = append(result.Stages, sr)
	return err
}

// recordStage persists one finished StageResult.
func (p *Pipeline) recordStage(runID string, sr *StageResult) error {
	rec, err := p.cfg.Store.RecordStageRun(runID, sr.Name)
	if err != nil {
		return fmt.Errorf("failed to record stage %s: %w", sr.Name, err)
	}
	return p.cfg.Store.UpdateStageRun(rec.ID, sr.Status, sr.Rows, sr.Err, sr.Duration.Milliseconds())
}

// skipStages records every remaining stage as skipped.
func (p *Pipeline) skipStages(runID string, ids []string, result *Result) error {
	for _, id := range ids {
		result.Stages = append(result.Stages, StageResult{Name: id, Status: state.StageStatusSkipped})

		rec, err := p.cfg.Store.RecordStageRun(runID, id)
		if err != nil {
			return fmt.Errorf("failed to record skipped stage %s: %w", id, err)
		}
		if err := p.cfg.Store.UpdateStageRun(rec.ID, state.StageStatusSkipped, 0, "", 0); err != nil {
			return err
		}
	}
	return nil
}

// writeArtifact saves the per-stage output file when an output directory is
// configured.
func (p *Pipeline) writeArtifact(stage string, env *Env) error {
	if p.cfg.OutputDir == "" {
		return nil
	}

	switch stage {
	case StageExtract:
		return env.Raw.WriteFile(filepath.Join(p.cfg.OutputDir, "raw.csv"))
	case StageClean:
		return env.Cleaned.WriteFile(filepath.Join(p.cfg.OutputDir, "clean.csv"))
	case StageValidate:
		data, err := json.MarshalIndent(env.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return os.WriteFile(filepath.Join(p.cfg.OutputDir, "report.json"), data, 0o644)
	}
	return nil
}

// fingerprint hashes the raw batch in its canonical CSV encoding. An empty
// or failed extraction fingerprints empty.
func fingerprint(raw *table.Table) string {
	if raw == nil {
		return ""
	}
	h := sha256.New()
	if err := raw.WriteCSV(h); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
