package pipeline

import (
	"context"
	"fmt"

	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/extract"
	"github.com/driftline-labs/hrflow/internal/publish"
	"github.com/driftline-labs/hrflow/internal/validate"
	"github.com/driftline-labs/hrflow/internal/warehouse"
)

type extractStage struct {
	source extract.Source
}

func (s *extractStage) Name() string { return StageExtract }

func (s *extractStage) Run(ctx context.Context, env *Env) (int64, error) {
	raw, err := s.source.Extract(ctx)
	if err != nil {
		return 0, err
	}
	env.Raw = raw
	return int64(raw.RowCount()), nil
}

type cleanStage struct {
	cleaner *clean.Cleaner
}

func (s *cleanStage) Name() string { return StageClean }

func (s *cleanStage) Run(ctx context.Context, env *Env) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cleaned, stats, err := s.cleaner.Clean(env.Raw)
	if err != nil {
		return 0, err
	}
	env.Cleaned = cleaned
	env.CleanStats = stats
	return int64(cleaned.RowCount()), nil
}

type validateStage struct {
	evaluator *validate.Evaluator
	suite     *validate.Suite
}

func (s *validateStage) Name() string { return StageValidate }

// Run evaluates the suite. The stage fails on hard rule failures so the
// graph skips load and publish; the report stays in the environment either
// way so callers can render it.
func (s *validateStage) Run(ctx context.Context, env *Env) (int64, error) {
	report, err := s.evaluator.Evaluate(ctx, env.Cleaned, s.suite)
	if err != nil {
		return 0, err
	}
	env.Report = report
	if n := report.HardFailures(); n > 0 {
		return 0, fmt.Errorf("%d hard validation failure(s): %w", n, validate.ErrFailed)
	}
	return int64(report.RowCount), nil
}

type loadStage struct {
	loader *warehouse.Loader
}

func (s *loadStage) Name() string { return StageLoad }

func (s *loadStage) Run(ctx context.Context, env *Env) (int64, error) {
	loaded, err := s.loader.Load(ctx, env.Cleaned, env.Report)
	if err != nil {
		return 0, err
	}
	env.Loaded = loaded
	return loaded, nil
}

type publishStage struct {
	publisher *publish.Publisher
}

func (s *publishStage) Name() string { return StagePublish }

func (s *publishStage) Run(ctx context.Context, env *Env) (int64, error) {
	published, err := s.publisher.Publish(ctx, env.Cleaned)
	if err != nil {
		return 0, err
	}
	env.Published = published
	return int64(published), nil
}
