package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/driftline-labs/hrflow/internal/table"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter {
		return NewPostgres(logger)
	})
}

// PostgresAdapter implements Adapter for PostgreSQL.
type PostgresAdapter struct {
	baseAdapter
}

// NewPostgres creates a new PostgreSQL adapter instance.
func NewPostgres(logger *slog.Logger) *PostgresAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresAdapter{baseAdapter{Logger: logger}}
}

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := BuildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", "host", cfg.Host, "database", cfg.Database)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// BuildPostgresDSN constructs a key=value PostgreSQL connection string.
func BuildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += " user=" + cfg.User
	}
	if cfg.Password != "" {
		dsn += " password=" + cfg.Password
	}
	return dsn
}

// TableMetadata retrieves metadata using information_schema.
func (a *PostgresAdapter) TableMetadata(ctx context.Context, tableName string) (*Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
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
func (a *PostgresAdapter) ReplaceTable(ctx context.Context, tableName string, t *table.Table) (int64, error) {
	return a.replaceRows(ctx, tableName, t, func(i int) string { return "$" + strconv.Itoa(i) })
}
