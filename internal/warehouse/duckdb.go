package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/driftline-labs/hrflow/internal/table"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter {
		return NewDuckDB(logger)
	})
}

// DuckDBAdapter implements Adapter for DuckDB.
type DuckDBAdapter struct {
	baseAdapter
}

// NewDuckDB creates a new DuckDB adapter instance.
func NewDuckDB(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{baseAdapter{Logger: logger}}
}

// Connect establishes a connection to DuckDB. An empty path opens an
// in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	a.Logger.Debug("connecting to duckdb", "path", cfg.Path)

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// TableMetadata retrieves metadata using DuckDB's information_schema.
func (a *DuckDBAdapter) TableMetadata(ctx context.Context, tableName string) (*Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := a.DB.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}

	var rowCount int64
	countQuery := "SELECT COUNT(*) FROM " + tableName //nolint:gosec // table name comes from config, not user rows
	if err := a.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &Metadata{Name: tableName, Columns: columns, RowCount: rowCount}, nil
}

// ReplaceTable atomically replaces the table contents.
func (a *DuckDBAdapter) ReplaceTable(ctx context.Context, tableName string, t *table.Table) (int64, error) {
	return a.replaceRows(ctx, tableName, t, func(int) string { return "?" })
}
