package warehouse

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/hrschema"
	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/testutil"
)

func sampleTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl := table.New([]table.Column{
		{Name: "employee_number", Type: table.TypeInt},
		{Name: "department", Type: table.TypeString},
	})
	for i := 1; i <= rows; i++ {
		if err := tbl.AppendRow([]any{int64(i), "Sales"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	return tbl
}

func TestRegistry(t *testing.T) {
	names := ListAdapters()

	want := map[string]bool{"duckdb": false, "postgres": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("adapter %s not registered", n)
		}
	}

	if _, err := New(Config{Type: "oracle"}, nil); err == nil {
		t.Error("expected error for unknown adapter type")
	}
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty adapter type")
	}
}

func TestCreateTableSQL(t *testing.T) {
	sql := createTableSQL("employees", []table.Column{
		{Name: "employee_number", Type: table.TypeInt},
		{Name: "monthly_income", Type: table.TypeFloat},
		{Name: "attrition", Type: table.TypeString},
	})

	want := "CREATE TABLE IF NOT EXISTS employees (employee_number BIGINT, monthly_income DOUBLE PRECISION, attrition TEXT)"
	if sql != want {
		t.Errorf("unexpected DDL:\n%s", sql)
	}
}

func TestBuildInsert(t *testing.T) {
	tbl := sampleTable(t, 2)

	stmt, args := buildInsert("employees", tbl.ColumnNames(), tbl, 0, 2,
		func(i int) string { return "$" + strconv.Itoa(i) })

	want := "INSERT INTO employees (employee_number, department) VALUES ($1, $2), ($3, $4)"
	if stmt != want {
		t.Errorf("unexpected statement:\n%s", stmt)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d", len(args))
	}
	if args[0] != int64(1) || args[1] != "Sales" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestReplaceRows_TransactionalInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	base := &baseAdapter{DB: db}
	tbl := sampleTable(t, 3)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO employees").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := base.replaceRows(context.Background(), "employees", tbl,
		func(i int) string { return "$" + strconv.Itoa(i) })
	if err != nil {
		t.Fatalf("replaceRows failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows inserted, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceRows_RollbackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	base := &baseAdapter{DB: db}
	tbl := sampleTable(t, 2)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO employees").
		WillReturnError(strConvError("constraint violation"))
	mock.ExpectRollback()

	if _, err := base.replaceRows(context.Background(), "employees", tbl,
		func(i int) string { return "$" + strconv.Itoa(i) }); err == nil {
		t.Error("expected error when insert fails")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceRows_Batching(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	base := &baseAdapter{DB: db}
	tbl := sampleTable(t, insertBatchSize+5)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM employees").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO employees").
		WillReturnResult(sqlmock.NewResult(0, int64(insertBatchSize)))
	mock.ExpectExec("INSERT INTO employees").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	n, err := base.replaceRows(context.Background(), "employees", tbl,
		func(i int) string { return "?" })
	if err != nil {
		t.Fatalf("replaceRows failed: %v", err)
	}
	if n != int64(insertBatchSize+5) {
		t.Errorf("expected %d rows, got %d", insertBatchSize+5, n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn := BuildPostgresDSN(Config{
		Host:     "db.internal",
		Port:     5434,
		Database: "airflow",
		User:     "hrflow",
		Password: "secret",
	})

	for _, part := range []string{"host=db.internal", "port=5434", "dbname=airflow", "user=hrflow", "password=secret", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn missing %q: %s", part, dsn)
		}
	}

	dsn = BuildPostgresDSN(Config{Database: "hr", Options: map[string]string{"sslmode": "require"}})
	if !strings.Contains(dsn, "host=localhost") || !strings.Contains(dsn, "sslmode=require") {
		t.Errorf("unexpected defaults: %s", dsn)
	}
}

type strConvError string

func (e strConvError) Error() string { return string(e) }

// A cleaned table written to CSV and read back must produce the same DDL
// as the in-memory cleaned table, so the standalone load path creates the
// identical employees schema as a full pipeline run.
func TestCreateTableSQL_CSVRoundTrip(t *testing.T) {
	raw, err := table.ReadCSV(strings.NewReader(testutil.RawCSV(1)))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	cleaner, err := clean.New(clean.Config{})
	if err != nil {
		t.Fatalf("cleaner: %v", err)
	}
	cleaned, _, err := cleaner.Clean(raw)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}

	var buf bytes.Buffer
	if err := cleaned.WriteCSV(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	reread, err := table.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	retyped, err := reread.Retype(hrschema.TableColumns())
	if err != nil {
		t.Fatalf("retype: %v", err)
	}

	direct := createTableSQL(DefaultTable, cleaned.Columns())
	viaCSV := createTableSQL(DefaultTable, retyped.Columns())
	if direct != viaCSV {
		t.Errorf("DDL diverges between run and artifact paths:\n%s\n%s", direct, viaCSV)
	}
	if strings.Contains(viaCSV, "monthly_income TEXT") {
		t.Error("monthly_income must not degrade to TEXT on the artifact path")
	}
}
