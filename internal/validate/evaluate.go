package validate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/driftline-labs/hrflow/internal/table"
)

const (
	defaultSampleLimit = 10
	defaultConcurrency = 4
)

// Config holds evaluator configuration.
type Config struct {
	// SampleLimit caps the violation samples kept per rule. The exact
	// failure count is always reported.
	SampleLimit int
	// Concurrency bounds parallel rule evaluation. Rules are independent
	// reads of an immutable table.
	Concurrency int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Evaluator evaluates expectation suites against tables.
type Evaluator struct {
	sampleLimit int
	concurrency int
	logger      *slog.Logger
}

// New creates an evaluator.
func New(cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sampleLimit := cfg.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = defaultSampleLimit
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Evaluator{
		sampleLimit: sampleLimit,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Evaluate runs every rule of the suite against the table and returns the
// complete report. Every rule is evaluated even when earlier rules fail;
// only a malformed suite or a cancelled context aborts evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, t *table.Table, suite *Suite) (*Report, error) {
	for i, r := range suite.Rules {
		if err := r.check(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}

	e.logger.Debug("evaluating suite", "suite", suite.Name, "rules", len(suite.Rules), "rows", t.RowCount())

	results := make([]RuleResult, len(suite.Rules))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, rule := range suite.Rules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.evalRule(t, rule)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Suite:    suite.Name,
		RowCount: t.RowCount(),
		Results:  results,
	}

	e.logger.Debug("suite evaluated",
		"suite", suite.Name,
		"hard_failures", report.HardFailures(),
		"warnings", report.Warnings())

	return report, nil
}

func (e *Evaluator) evalRule(t *table.Table, rule Rule) RuleResult {
	res := RuleResult{Rule: rule, Passed: true}

	// A missing column fails the rule itself without inventing row
	// violations; a dedicated column_exists rule reports the root cause.
	if rule.Kind != KindColumnExists && rule.Kind != KindRowCountBetween && !t.HasColumn(rule.Column) {
		res.Passed = false
		res.Message = fmt.Sprintf("column %q does not exist", rule.Column)
		return res
	}

	switch rule.Kind {
	case KindColumnExists:
		if !t.HasColumn(rule.Column) {
			res.Passed = false
			res.Message = fmt.Sprintf("column %q does not exist", rule.Column)
		}

	case KindNotNull:
		e.collectViolations(t, rule.Column, &res, func(v any) bool {
			return isNull(v)
		})

	case KindUnique:
		e.evalUnique(t, rule.Column, &res)

	case KindAcceptedValues:
		var p acceptedValuesParams
		_ = decodeParams(rule.Params, &p)
		allowed := make(map[string]bool, len(p.Values))
		for _, v := range p.Values {
			allowed[v] = true
		}
		e.collectViolations(t, rule.Column, &res, func(v any) bool {
			// Null cells are the not_null rule's concern.
			return !isNull(v) && !allowed[table.FormatCell(v)]
		})

	case KindBetween:
		var p betweenParams
		_ = decodeParams(rule.Params, &p)
		e.collectViolations(t, rule.Column, &res, func(v any) bool {
			if isNull(v) {
				return false
			}
			n, ok := toFloat(v)
			if !ok {
				// Non-numeric where a range is declared is out of range.
				return true
			}
			if p.Min != nil && n < *p.Min {
				return true
			}
			if p.Max != nil && n > *p.Max {
				return true
			}
			return false
		})

	case KindRowCountBetween:
		var p rowCountParams
		_ = decodeParams(rule.Params, &p)
		n := int64(t.RowCount())
		if p.Min != nil && n < *p.Min {
			res.Passed = false
			res.Message = fmt.Sprintf("row count %d below minimum %d", n, *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			res.Passed = false
			res.Message = fmt.Sprintf("row count %d above maximum %d", n, *p.Max)
		}
	}

	return res
}

// collectViolations scans one column and records every row where bad()
// holds. FailedCount is exact; samples are capped.
func (e *Evaluator) collectViolations(t *table.Table, col string, res *RuleResult, bad func(any) bool) {
	values, err := t.ColumnValues(col)
	if err != nil {
		res.Passed = false
		res.Message = err.Error()
		return
	}
	for r, v := range values {
		if !bad(v) {
			continue
		}
		res.FailedCount++
		if len(res.Samples) < e.sampleLimit {
			res.Samples = append(res.Samples, Violation{Row: r + 1, Value: table.FormatCell(v)})
		}
	}
	res.Passed = res.FailedCount == 0
}

// evalUnique marks every row whose value occurs more than once. Null cells
// are skipped; not_null owns those.
func (e *Evaluator) evalUnique(t *table.Table, col string, res *RuleResult) {
	values, err := t.ColumnValues(col)
	if err != nil {
		res.Passed = false
		res.Message = err.Error()
		return
	}

	seen := make(map[string][]int, len(values))
	for r, v := range values {
		if isNull(v) {
			continue
		}
		key := table.FormatCell(v)
		seen[key] = append(seen[key], r)
	}

	var dupRows []int
	for _, rows := range seen {
		if len(rows) < 2 {
			continue
		}
		dupRows = append(dupRows, rows...)
	}
	sort.Ints(dupRows)

	res.FailedCount = len(dupRows)
	for _, r := range dupRows {
		if len(res.Samples) >= e.sampleLimit {
			break
		}
		v, _ := t.Value(r, col)
		res.Samples = append(res.Samples, Violation{Row: r + 1, Value: table.FormatCell(v)})
	}
	res.Passed = res.FailedCount == 0
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
