package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/validate"
)

// DefaultTable is the loader's target table when none is configured.
const DefaultTable = "employees"

// Loader writes a validated batch into the warehouse. The load is
// all-or-nothing and fail-closed: a report with hard failures refuses to
// load, and a re-load of the same batch replaces rather than appends.
type Loader struct {
	adapter   Adapter
	tableName string
	logger    *slog.Logger
}

// LoaderConfig holds loader configuration.
type LoaderConfig struct {
	Adapter Adapter
	// Table is the target table. Defaults to DefaultTable.
	Table string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// NewLoader creates a loader over a connected adapter.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("loader requires an adapter")
	}

	tableName := cfg.Table
	if tableName == "" {
		tableName = DefaultTable
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{adapter: cfg.Adapter, tableName: tableName, logger: logger}, nil
}

// Load writes the table into the warehouse, gated by the validation report.
// A nil report or a report with hard failures returns validate.ErrFailed
// without touching the store.
func (l *Loader) Load(ctx context.Context, t *table.Table, report *validate.Report) (int64, error) {
	if report == nil {
		return 0, fmt.Errorf("refusing to load unvalidated batch: %w", validate.ErrFailed)
	}
	if n := report.HardFailures(); n > 0 {
		return 0, fmt.Errorf("refusing to load: %d hard validation failure(s): %w", n, validate.ErrFailed)
	}
	if report.RowCount != t.RowCount() {
		return 0, fmt.Errorf("refusing to load: report covers %d rows, batch has %d: %w",
			report.RowCount, t.RowCount(), validate.ErrFailed)
	}

	l.logger.Info("loading batch", "table", l.tableName, "rows", t.RowCount())

	inserted, err := l.adapter.ReplaceTable(ctx, l.tableName, t)
	if err != nil {
		return 0, fmt.Errorf("load failed: %w", err)
	}

	l.logger.Info("batch loaded", "table", l.tableName, "rows", inserted)
	return inserted, nil
}
