// Package extract pulls the raw employee batch out of its source system.
// Sources produce stringly-typed tables; coercion belongs to the cleaner.
package extract

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/driftline-labs/hrflow/internal/table"
)

// DefaultSourceTable is the source table queried when none is configured.
const DefaultSourceTable = "hr_employees"

// Config holds extraction source configuration.
type Config struct {
	Type string `koanf:"type"` // postgres, csv

	// CSV source
	Path string `koanf:"path"`

	// PostgreSQL source
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`

	// Table is the source table. Query, when set, replaces the generated
	// SELECT entirely.
	Table string `koanf:"table"`
	Query string `koanf:"query"`
}

// Source produces a raw table from an upstream system.
type Source interface {
	// Extract reads the full batch. Every cell is a string; empty cells
	// represent source NULLs.
	Extract(ctx context.Context) (*table.Table, error)

	// Close releases source resources.
	Close() error
}

// New creates a source for the configured type.
func New(cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Type {
	case "csv":
		if cfg.Path == "" {
			return nil, fmt.Errorf("csv source requires a path")
		}
		return &CSVSource{path: cfg.Path, logger: logger}, nil
	case "postgres", "":
		db, err := sql.Open("pgx", postgresDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open source connection: %w", err)
		}
		return NewPostgresSource(db, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func postgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
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

// CSVSource reads the batch from a local CSV file.
type CSVSource struct {
	path   string
	logger *slog.Logger
}

func (s *CSVSource) Extract(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := table.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract from %s: %w", s.path, err)
	}

	s.logger.Info("extracted batch", "source", s.path, "rows", t.RowCount())
	return t, nil
}

func (s *CSVSource) Close() error { return nil }

// PostgresSource reads the batch from a PostgreSQL table.
type PostgresSource struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// NewPostgresSource wraps an open connection. The source owns the
// connection and closes it.
func NewPostgresSource(db *sql.DB, cfg Config, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresSource{db: db, cfg: cfg, logger: logger}
}

func (s *PostgresSource) query() string {
	if s.cfg.Query != "" {
		return s.cfg.Query
	}
	tableName := s.cfg.Table
	if tableName == "" {
		tableName = DefaultSourceTable
	}
	return "SELECT * FROM " + tableName
}

func (s *PostgresSource) Extract(ctx context.Context) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read source columns: %w", err)
	}

	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Name: name, Type: table.TypeString}
	}
	t := table.New(cols)

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = stringify(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source rows: %w", err)
	}

	s.logger.Info("extracted batch", "query", s.query(), "rows", t.RowCount())
	return t, nil
}

func (s *PostgresSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// stringify renders a driver value as a raw cell. NULL renders empty, the
// same convention the CSV path uses.
func stringify(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(c)
	case string:
		return c
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", c)
	}
}
