// Package profile computes descriptive attrition statistics over the loaded
// warehouse table.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// GroupStat is one row of a grouped breakdown.
type GroupStat struct {
	Group            string  `json:"group"`
	Count            int64   `json:"count"`
	AttritionCount   int64   `json:"attrition_count"`
	AttritionRate    float64 `json:"attrition_rate"`
	AvgMonthlyIncome float64 `json:"avg_monthly_income"`
}

// Report is a full profile of the employees table.
type Report struct {
	Table          string      `json:"table"`
	RowCount       int64       `json:"row_count"`
	AttritionCount int64       `json:"attrition_count"`
	AttritionRate  float64     `json:"attrition_rate"`
	ByDepartment   []GroupStat `json:"by_department"`
	ByJobRole      []GroupStat `json:"by_job_role"`
	ByOvertime     []GroupStat `json:"by_overtime"`
	ByIncomeBand   []GroupStat `json:"by_income_band"`
	ByTenureBand   []GroupStat `json:"by_tenure_band"`
}

// Profiler runs the profile queries against a connected warehouse.
type Profiler struct {
	adapter   warehouse.Adapter
	tableName string
	logger    *slog.Logger
}

// Config holds profiler configuration.
type Config struct {
	Adapter warehouse.Adapter
	// Table is the employees table. Defaults to the loader's default.
	Table  string
	Logger *slog.Logger
}

// New creates a profiler over a connected adapter.
func New(cfg Config) (*Profiler, error) {
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("profiler requires an adapter")
	}
	tableName := cfg.Table
	if tableName == "" {
		tableName = warehouse.DefaultTable
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Profiler{adapter: cfg.Adapter, tableName: tableName, logger: logger}, nil
}

// Profile computes the full report. Results are ordered by group name so
// profiling the same snapshot yields an identical report.
func (p *Profiler) Profile(ctx context.Context) (*Report, error) {
	report := &Report{Table: p.tableName}

	totals := fmt.Sprintf(
		"SELECT COUNT(*), SUM(CASE WHEN attrition = 'Yes' THEN 1 ELSE 0 END) FROM %s",
		p.tableName)
	rows, err := p.adapter.Query(ctx, totals)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	if rows.Next() {
		if err := rows.Scan(&report.RowCount, &report.AttritionCount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if report.RowCount > 0 {
		report.AttritionRate = float64(report.AttritionCount) / float64(report.RowCount)
	}

	for _, g := range []struct {
		column string
		dest   *[]GroupStat
	}{
		{"department", &report.ByDepartment},
		{"job_role", &report.ByJobRole},
		{"over_time", &report.ByOvertime},
		{"income_band", &report.ByIncomeBand},
		{"tenure_band", &report.ByTenureBand},
	} {
		stats, err := p.groupBy(ctx, g.column)
		if err != nil {
			return nil, err
		}
		*g.dest = stats
	}

	p.logger.Info("profiled table", "table", p.tableName, "rows", report.RowCount)
	return report, nil
}

func (p *Profiler) groupBy(ctx context.Context, column string) ([]GroupStat, error) {
	q := fmt.Sprintf(
		"SELECT %[1]s, COUNT(*), SUM(CASE WHEN attrition = 'Yes' THEN 1 ELSE 0 END), AVG(monthly_income) FROM %[2]s GROUP BY %[1]s ORDER BY %[1]s",
		column, p.tableName)

	rows, err := p.adapter.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	var stats []GroupStat
	for rows.Next() {
		var s GroupStat
		if err := rows.Scan(&s.Group, &s.Count, &s.AttritionCount, &s.AvgMonthlyIncome); err != nil {
			return nil, fmt.Errorf("failed to scan %s breakdown: %w", column, err)
		}
		if s.Count > 0 {
			s.AttritionRate = float64(s.AttritionCount) / float64(s.Count)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s breakdown: %w", column, err)
	}
	return stats, nil
}

// Render writes the report as formatted tables.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Table: %s\n", r.Table)
	fmt.Fprintf(w, "Employees: %d\n", r.RowCount)
	fmt.Fprintf(w, "Attrition: %d (%.1f%%)\n\n", r.AttritionCount, r.AttritionRate*100)

	for _, section := range []struct {
		title string
		stats []GroupStat
	}{
		{"By Department", r.ByDepartment},
		{"By Job Role", r.ByJobRole},
		{"By Overtime", r.ByOvertime},
		{"By Income Band", r.ByIncomeBand},
		{"By Tenure Band", r.ByTenureBand},
	} {
		if len(section.stats) == 0 {
			continue
		}
		renderGroup(w, section.title, section.stats)
		fmt.Fprintln(w)
	}
}

func renderGroup(w io.Writer, title string, stats []GroupStat) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Group", "Employees", "Attrition", "Rate", "Avg Income"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.Group,
			s.Count,
			s.AttritionCount,
			fmt.Sprintf("%.1f%%", s.AttritionRate*100),
			fmt.Sprintf("%.0f", s.AvgMonthlyIncome),
		})
	}
	t.Render()
}

// RenderJSON writes the report as indented JSON.
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
