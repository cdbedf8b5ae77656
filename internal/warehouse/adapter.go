// Package warehouse provides database adapters for the analytics store and
// the all-or-nothing loader that writes validated batches into it.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/driftline-labs/hrflow/internal/table"
)

// Config holds warehouse connection configuration.
type Config struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB). Empty means in-memory.
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Table is the target table name for the loader.
	Table string `koanf:"table"`

	// Additional driver-specific options (e.g. sslmode)
	Options map[string]string `koanf:"options"`
}

// Adapter is the interface all warehouse adapters implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sqlStr string, args ...any) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error)

	// TableMetadata retrieves column metadata and row count for a table.
	TableMetadata(ctx context.Context, tableName string) (*Metadata, error)

	// ReplaceTable atomically replaces the named table's contents with the
	// given rows. Either every row lands or none do.
	ReplaceTable(ctx context.Context, tableName string, t *table.Table) (int64, error)
}

// Column describes one warehouse column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata describes a warehouse table.
type Metadata struct {
	Name     string
	Columns  []Column
	RowCount int64
}

// UnknownAdapterError is returned for unregistered adapter types.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q (available: %s)", e.Type, strings.Join(e.Available, ", "))
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory to the registry. Called from adapter
// init() functions.
func Register(name string, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates an adapter for the configured warehouse type.
func New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("warehouse type not specified")
	}

	registryMu.RLock()
	factory, ok := registry[strings.ToLower(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// baseAdapter provides common database/sql functionality. Concrete adapters
// embed it and supply connection handling plus a placeholder style.
type baseAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

func (b *baseAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing warehouse connection")
		}
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

func (b *baseAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("warehouse connection not established")
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

func (b *baseAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// ddlFor maps a table column to the warehouse column type.
func ddlFor(t table.Type) string {
	switch t {
	case table.TypeInt:
		return "BIGINT"
	case table.TypeFloat:
		return "DOUBLE PRECISION"
	case table.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// createTableSQL renders the fixed DDL for a table layout.
func createTableSQL(name string, cols []table.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c.Name, ddlFor(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
}

// insertBatchSize bounds rows per INSERT so parameter counts stay well
// under driver limits (35 columns x 200 rows = 7000 parameters).
const insertBatchSize = 200

// replaceRows runs the shared transactional truncate+insert path.
// placeholder renders the i-th (1-based) parameter for the dialect.
func (b *baseAdapter) replaceRows(ctx context.Context, tableName string, t *table.Table, placeholder func(int) string) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("warehouse connection not established")
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createTableSQL(tableName, t.Columns())); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableName); err != nil {
		return 0, fmt.Errorf("failed to clear table %s: %w", tableName, err)
	}

	cols := t.ColumnNames()
	var inserted int64

	for start := 0; start < t.RowCount(); start += insertBatchSize {
		end := start + insertBatchSize
		if end > t.RowCount() {
			end = t.RowCount()
		}

		stmt, args := buildInsert(tableName, cols, t, start, end, placeholder)
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert rows %d-%d: %w", start+1, end, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		} else {
			inserted += int64(end - start)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit load: %w", err)
	}

	return inserted, nil
}

func buildInsert(tableName string, cols []string, t *table.Table, start, end int, placeholder func(int) string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(tableName)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, (end-start)*len(cols))
	param := 1
	for r := start; r < end; r++ {
		if r > start {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder(param))
			param++
		}
		sb.WriteString(")")
		args = append(args, t.Row(r)...)
	}

	return sb.String(), args
}
