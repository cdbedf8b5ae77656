package profile

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/warehouse"
)

// mockAdapter routes Query through a sqlmock-backed database.
type mockAdapter struct {
	db *sql.DB
}

func (m *mockAdapter) Connect(ctx context.Context, cfg warehouse.Config) error { return nil }
func (m *mockAdapter) Close() error                                            { return m.db.Close() }
func (m *mockAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	_, err := m.db.ExecContext(ctx, sqlStr, args...)
	return err
}
func (m *mockAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, sqlStr, args...)
}
func (m *mockAdapter) TableMetadata(ctx context.Context, tableName string) (*warehouse.Metadata, error) {
	return nil, nil
}
func (m *mockAdapter) ReplaceTable(ctx context.Context, tableName string, t *table.Table) (int64, error) {
	return 0, nil
}

func expectProfileQueries(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT COUNT\\(\\*\\), SUM").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(int64(1470), int64(237)))

	mock.ExpectQuery("GROUP BY department").
		WillReturnRows(sqlmock.NewRows([]string{"group", "count", "attr", "income"}).
			AddRow("Human Resources", int64(63), int64(12), 6654.5).
			AddRow("Research & Development", int64(961), int64(133), 6281.3).
			AddRow("Sales", int64(446), int64(92), 6959.2))

	mock.ExpectQuery("GROUP BY job_role").
		WillReturnRows(sqlmock.NewRows([]string{"group", "count", "attr", "income"}).
			AddRow("Laboratory Technician", int64(259), int64(62), 3237.2).
			AddRow("Sales Executive", int64(326), int64(57), 6924.3))

	mock.ExpectQuery("GROUP BY over_time").
		WillReturnRows(sqlmock.NewRows([]string{"group", "count", "attr", "income"}).
			AddRow("No", int64(1054), int64(110), 6737.1).
			AddRow("Yes", int64(416), int64(127), 5765.9))

	mock.ExpectQuery("GROUP BY income_band").
		WillReturnRows(sqlmock.NewRows([]string{"group", "count", "attr", "income"}).
			AddRow("low", int64(350), int64(113), 2412.8).
			AddRow("medium", int64(570), int64(77), 4674.0))

	mock.ExpectQuery("GROUP BY tenure_band").
		WillReturnRows(sqlmock.NewRows([]string{"group", "count", "attr", "income"}).
			AddRow("0-2 yrs", int64(445), int64(130), 4816.1).
			AddRow("3-5 yrs", int64(455), int64(55), 5732.9))
}

func newMockProfiler(t *testing.T) (*Profiler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p, err := New(Config{Adapter: &mockAdapter{db: db}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, mock
}

func TestNew_RequiresAdapter(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without adapter")
	}
}

func TestProfile(t *testing.T) {
	p, mock := newMockProfiler(t)
	expectProfileQueries(mock)

	report, err := p.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	if report.RowCount != 1470 {
		t.Errorf("expected 1470 rows, got %d", report.RowCount)
	}
	if report.AttritionCount != 237 {
		t.Errorf("expected 237 leavers, got %d", report.AttritionCount)
	}
	if report.AttritionRate < 0.16 || report.AttritionRate > 0.17 {
		t.Errorf("unexpected attrition rate: %f", report.AttritionRate)
	}

	if len(report.ByDepartment) != 3 {
		t.Fatalf("expected 3 departments, got %d", len(report.ByDepartment))
	}
	sales := report.ByDepartment[2]
	if sales.Group != "Sales" || sales.Count != 446 {
		t.Errorf("unexpected department stat: %+v", sales)
	}
	if sales.AttritionRate < 0.20 || sales.AttritionRate > 0.21 {
		t.Errorf("unexpected sales attrition rate: %f", sales.AttritionRate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProfile_QueryError(t *testing.T) {
	p, mock := newMockProfiler(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(sql.ErrConnDone)

	if _, err := p.Profile(context.Background()); err == nil {
		t.Error("expected query error to propagate")
	}
}

func TestRender(t *testing.T) {
	p, mock := newMockProfiler(t)
	expectProfileQueries(mock)

	report, err := p.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	var buf bytes.Buffer
	report.Render(&buf)
	out := buf.String()

	for _, want := range []string{"Employees: 1470", "By Department", "Sales", "20.6%", "By Overtime", "By Tenure Band", "0-2 yrs"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	p, mock := newMockProfiler(t)
	expectProfileQueries(mock)

	report, err := p.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	var buf bytes.Buffer
	if err := report.RenderJSON(&buf); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.RowCount != 1470 || len(decoded.ByJobRole) != 2 {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}
