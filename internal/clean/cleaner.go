// Package clean transforms the raw snapshot into the canonical cleaned
// table: headers are normalized, duplicate rows removed, constant columns
// dropped, every column coerced to its declared type, and the bucketed
// columns derived. The cleaned layout is fixed by the hrschema registry.
package clean

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftline-labs/hrflow/internal/hrschema"
	"github.com/driftline-labs/hrflow/internal/table"
)

// BadRowPolicy decides what happens to a row whose required field cannot be
// coerced to its declared type. There is no silent option.
type BadRowPolicy string

const (
	// PolicyDrop removes the row, counts it in Stats.Dropped, and logs it.
	PolicyDrop BadRowPolicy = "drop"
	// PolicyFail aborts the clean stage on the first uncoercible row.
	PolicyFail BadRowPolicy = "fail"
)

// Config holds cleaner configuration.
type Config struct {
	// OnBadRow is the explicit bad-row policy. Defaults to drop.
	OnBadRow BadRowPolicy
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Stats summarizes one clean pass.
type Stats struct {
	RowsIn  int `json:"rows_in"`
	RowsOut int `json:"rows_out"`
	Deduped int `json:"deduped"`
	Dropped int `json:"dropped"`
}

// Cleaner cleans raw snapshots.
type Cleaner struct {
	policy BadRowPolicy
	logger *slog.Logger
}

// New creates a cleaner.
func New(cfg Config) (*Cleaner, error) {
	policy := cfg.OnBadRow
	if policy == "" {
		policy = PolicyDrop
	}
	if policy != PolicyDrop && policy != PolicyFail {
		return nil, fmt.Errorf("unknown bad-row policy: %q", policy)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Cleaner{policy: policy, logger: logger}, nil
}

// Clean produces the cleaned table from a raw one. The raw table must carry
// every non-derived column of the canonical layout (after header
// normalization); a missing source column is an error, not a data quality
// finding.
func (c *Cleaner) Clean(raw *table.Table) (*table.Table, Stats, error) {
	stats := Stats{RowsIn: raw.RowCount()}

	// Normalized raw header name -> raw column index.
	rawIndex := make(map[string]int, len(raw.Columns()))
	for i, col := range raw.Columns() {
		rawIndex[hrschema.NormalizeColumn(col.Name)] = i
	}

	specs := hrschema.Columns()
	var missing []string
	for _, spec := range specs {
		if spec.Derived {
			continue
		}
		if _, ok := rawIndex[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return nil, stats, fmt.Errorf("raw snapshot is missing columns: %s", strings.Join(missing, ", "))
	}

	cleaned := table.New(hrschema.TableColumns())
	seen := make(map[string]bool, raw.RowCount())

	for r := 0; r < raw.RowCount(); r++ {
		row := raw.Row(r)

		// Duplicate rows carry no information in a one-batch snapshot.
		key := rowKey(row)
		if seen[key] {
			stats.Deduped++
			continue
		}
		seen[key] = true

		cells, badCol, err := c.coerceRow(row, rawIndex, specs)
		if err != nil {
			if c.policy == PolicyFail {
				return nil, stats, fmt.Errorf("row %d: %w", r+1, err)
			}
			stats.Dropped++
			c.logger.Warn("dropping uncoercible row", "row", r+1, "column", badCol, "error", err)
			continue
		}

		if err := cleaned.AppendRow(cells); err != nil {
			return nil, stats, err
		}
	}

	stats.RowsOut = cleaned.RowCount()

	c.logger.Info("cleaned snapshot",
		"rows_in", stats.RowsIn,
		"rows_out", stats.RowsOut,
		"deduped", stats.Deduped,
		"dropped", stats.Dropped)

	return cleaned, stats, nil
}

// coerceRow converts one raw row into the cleaned layout, deriving the
// bucket columns from the coerced values.
func (c *Cleaner) coerceRow(row []any, rawIndex map[string]int, specs []hrschema.ColumnSpec) ([]any, string, error) {
	cells := make([]any, len(specs))
	byName := make(map[string]any, len(specs))

	for i, spec := range specs {
		if spec.Derived {
			continue
		}

		rawCell := row[rawIndex[spec.Name]]
		v, err := table.ParseCell(table.FormatCell(rawCell), spec.Type)
		if err != nil {
			return nil, spec.Name, fmt.Errorf("column %s: %w", spec.Name, err)
		}

		cells[i] = v
		byName[spec.Name] = v
	}

	for i, spec := range specs {
		if !spec.Derived {
			continue
		}
		v, err := derive(spec.Name, byName)
		if err != nil {
			return nil, spec.Name, err
		}
		cells[i] = v
	}

	return cells, "", nil
}

func derive(name string, byName map[string]any) (any, error) {
	switch name {
	case "tenure_band":
		years, ok := byName["years_at_company"].(int64)
		if !ok {
			return nil, fmt.Errorf("cannot derive tenure_band: years_at_company is null")
		}
		return hrschema.TenureBand(years), nil
	case "income_band":
		income, ok := byName["monthly_income"].(int64)
		if !ok {
			return nil, fmt.Errorf("cannot derive income_band: monthly_income is null")
		}
		return hrschema.IncomeBand(income), nil
	case "age_group":
		age, ok := byName["age"].(int64)
		if !ok {
			return nil, fmt.Errorf("cannot derive age_group: age is null")
		}
		return hrschema.AgeGroup(age), nil
	default:
		return nil, fmt.Errorf("unknown derived column: %s", name)
	}
}

func rowKey(row []any) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		parts[i] = table.FormatCell(cell)
	}
	return strings.Join(parts, "\x1f")
}
