package publish

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/testutil"
)

func cleanTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl := table.New([]table.Column{
		{Name: "employee_number", Type: table.TypeInt},
		{Name: "department", Type: table.TypeString},
		{Name: "monthly_income", Type: table.TypeInt},
	})
	for i := 1; i <= rows; i++ {
		if err := tbl.AppendRow([]any{int64(i), "Sales", int64(5000 + i)}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	return tbl
}

// bulkServer fakes the Elasticsearch bulk endpoint. Each received request
// body is recorded and answered with a per-document response built by
// respond.
func bulkServer(t *testing.T, bodies *[][]byte, respond func(docs int) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.Method == http.MethodGet {
			// client product check
			fmt.Fprint(w, `{"version":{"number":"8.14.0"}}`)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read bulk body: %v", err)
		}
		*bodies = append(*bodies, body)

		docs := 0
		sc := bufio.NewScanner(bytes.NewReader(body))
		for sc.Scan() {
			docs++
		}
		fmt.Fprint(w, respond(docs/2))
	}))
}

func successResponse(docs int) string {
	items := make([]string, docs)
	for i := range items {
		items[i] = `{"index":{"_id":"1","status":201}}`
	}
	return fmt.Sprintf(`{"errors":false,"items":[%s]}`, strings.Join(items, ","))
}

func newTestPublisher(t *testing.T, url string, cfg Config) *Publisher {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewWithClient(client, cfg, testutil.NewTestLogger(t))
}

func TestPublish(t *testing.T) {
	var bodies [][]byte
	srv := bulkServer(t, &bodies, successResponse)
	defer srv.Close()

	p := newTestPublisher(t, srv.URL, Config{Index: "hr-employees"})

	n, err := p.Publish(context.Background(), cleanTable(t, 3))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 docs indexed, got %d", n)
	}
	if len(bodies) != 1 {
		t.Fatalf("expected one bulk request, got %d", len(bodies))
	}

	// Action and document alternate; the id is the employee number.
	lines := strings.Split(strings.TrimSpace(string(bodies[0])), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 NDJSON lines, got %d", len(lines))
	}
	var action map[string]map[string]string
	if err := json.Unmarshal([]byte(lines[0]), &action); err != nil {
		t.Fatalf("bad action line: %v", err)
	}
	if action["index"]["_id"] != "1" {
		t.Errorf("expected _id 1, got %s", action["index"]["_id"])
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("bad document line: %v", err)
	}
	if doc["department"] != "Sales" {
		t.Errorf("unexpected document: %v", doc)
	}
}

func TestPublish_Batching(t *testing.T) {
	var bodies [][]byte
	srv := bulkServer(t, &bodies, successResponse)
	defer srv.Close()

	p := newTestPublisher(t, srv.URL, Config{BatchSize: 2})

	n, err := p.Publish(context.Background(), cleanTable(t, 5))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 docs indexed, got %d", n)
	}
	if len(bodies) != 3 {
		t.Errorf("expected 3 bulk requests for batch size 2, got %d", len(bodies))
	}
}

func TestPublish_PartialFailure(t *testing.T) {
	var bodies [][]byte
	srv := bulkServer(t, &bodies, func(docs int) string {
		items := make([]string, docs)
		for i := range items {
			items[i] = `{"index":{"_id":"1","status":201}}`
		}
		items[docs-1] = `{"index":{"_id":"3","status":400,"error":{"type":"mapper_parsing_exception"}}}`
		return fmt.Sprintf(`{"errors":true,"items":[%s]}`, strings.Join(items, ","))
	})
	defer srv.Close()

	p := newTestPublisher(t, srv.URL, Config{})

	n, err := p.Publish(context.Background(), cleanTable(t, 3))
	if err == nil {
		t.Fatal("expected error when a document is rejected")
	}
	if n != 2 {
		t.Errorf("expected 2 docs reported indexed, got %d", n)
	}
}

func TestPublish_MissingIdentifier(t *testing.T) {
	p := newTestPublisher(t, "http://127.0.0.1:9", Config{})

	tbl := table.New([]table.Column{{Name: "department", Type: table.TypeString}})
	if _, err := p.Publish(context.Background(), tbl); err == nil {
		t.Error("expected error for batch without employee_number")
	}
}

func TestDefaults(t *testing.T) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://127.0.0.1:9"}})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	p := NewWithClient(client, Config{}, nil)
	if p.index != DefaultIndex {
		t.Errorf("expected default index %q, got %q", DefaultIndex, p.index)
	}
	if p.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, p.batchSize)
	}
}
