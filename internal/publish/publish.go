// Package publish indexes the loaded batch into Elasticsearch for search
// and dashboarding. Publishing is an optional stage: the warehouse stays
// the system of record.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/driftline-labs/hrflow/internal/hrschema"
	"github.com/driftline-labs/hrflow/internal/table"
)

// DefaultIndex is the target index when none is configured.
const DefaultIndex = "hr-employees"

// defaultBatchSize bounds documents per bulk request.
const defaultBatchSize = 500

// Config holds Elasticsearch publishing configuration.
type Config struct {
	Enabled   bool     `koanf:"enabled"`
	Addresses []string `koanf:"addresses"`
	Index     string   `koanf:"index"`
	Username  string   `koanf:"username"`
	Password  string   `koanf:"password"`
	APIKey    string   `koanf:"api_key"`
	BatchSize int      `koanf:"batch_size"`
}

// Publisher writes employee documents into an Elasticsearch index.
type Publisher struct {
	client    *elasticsearch.Client
	index     string
	batchSize int
	logger    *slog.Logger
}

// New creates a publisher from config.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *elasticsearch.Client, cfg Config, logger *slog.Logger) *Publisher {
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, index: index, batchSize: batchSize, logger: logger}
}

// Publish bulk-indexes every row. The document id is the employee number,
// so republishing the same batch overwrites documents instead of
// duplicating them.
func (p *Publisher) Publish(ctx context.Context, t *table.Table) (int, error) {
	idCol, ok := t.ColumnIndex(hrschema.Identifier)
	if !ok {
		return 0, fmt.Errorf("batch is missing identifier column %s", hrschema.Identifier)
	}

	cols := t.ColumnNames()
	indexed := 0

	for start := 0; start < t.RowCount(); start += p.batchSize {
		end := start + p.batchSize
		if end > t.RowCount() {
			end = t.RowCount()
		}

		body, err := bulkBody(p.index, cols, idCol, t, start, end)
		if err != nil {
			return indexed, err
		}
		n, err := p.sendBulk(ctx, body)
		indexed += n
		if err != nil {
			return indexed, err
		}
	}

	p.logger.Info("published batch", "index", p.index, "docs", indexed)
	return indexed, nil
}

// bulkBody renders one NDJSON bulk request for rows [start, end).
func bulkBody(index string, cols []string, idCol int, t *table.Table, start, end int) ([]byte, error) {
	var buf bytes.Buffer

	for r := start; r < end; r++ {
		row := t.Row(r)

		action := map[string]map[string]string{
			"index": {"_index": index, "_id": table.FormatCell(row[idCol])},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}

		doc := make(map[string]any, len(cols))
		for c, name := range cols {
			doc[name] = row[c]
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
	}

	return buf.Bytes(), nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string          `json:"_id"`
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error,omitempty"`
	} `json:"items"`
}

func (p *Publisher) sendBulk(ctx context.Context, body []byte) (int, error) {
	res, err := p.client.Bulk(bytes.NewReader(body),
		p.client.Bulk.WithContext(ctx),
		p.client.Bulk.WithIndex(p.index),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("bulk request rejected: %s: %s", res.Status(), bytes.TrimSpace(msg))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	succeeded := 0
	failed := 0
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				succeeded++
			} else {
				failed++
				if failed == 1 {
					p.logger.Warn("document rejected", "status", op.Status, "error", string(op.Error))
				}
			}
		}
	}

	if parsed.Errors {
		return succeeded, fmt.Errorf("bulk indexing failed for %d of %d document(s)", failed, succeeded+failed)
	}
	return succeeded, nil
}
