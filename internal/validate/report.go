package validate

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ErrFailed is returned by callers that gate on a report with hard
// failures (the loader refuses to run).
var ErrFailed = errors.New("validation failed")

// Violation is one offending row/value pair.
type Violation struct {
	// Row is the 1-based data row number (header excluded).
	Row int `json:"row"`
	// Value is the offending value rendered as a string.
	Value string `json:"value"`
}

// RuleResult is the outcome of evaluating one rule.
type RuleResult struct {
	Rule   Rule `json:"rule"`
	Passed bool `json:"passed"`
	// FailedCount is the exact number of violating rows. It is always the
	// full count even when Samples is capped.
	FailedCount int `json:"failed_count"`
	// Samples holds the first violations in row order, capped by the
	// evaluator's sample limit.
	Samples []Violation `json:"samples,omitempty"`
	// Message carries a rule-level failure description for table-level
	// rules and missing columns.
	Message string `json:"message,omitempty"`
}

// Report is a complete evaluation of a suite against one table. Results
// appear in suite order, one per rule, regardless of failures. The report
// carries no timestamps so that re-validating the same snapshot yields an
// identical report.
type Report struct {
	Suite    string       `json:"suite"`
	RowCount int          `json:"row_count"`
	Results  []RuleResult `json:"results"`
}

// HardFailures returns the number of failed rules with error severity.
func (r *Report) HardFailures() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed && res.Rule.EffectiveSeverity() == SeverityError {
			n++
		}
	}
	return n
}

// Warnings returns the number of failed rules with warn severity.
func (r *Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed && res.Rule.EffectiveSeverity() == SeverityWarn {
			n++
		}
	}
	return n
}

// Passed reports whether the report has no hard failures.
func (r *Report) Passed() bool {
	return r.HardFailures() == 0
}

// Render writes the report as a human-readable table.
func (r *Report) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Rule", "Severity", "Status", "Failures", "Sample"})

	for i, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}

		sample := res.Message
		if sample == "" && len(res.Samples) > 0 {
			v := res.Samples[0]
			sample = fmt.Sprintf("row %d: %q", v.Row, v.Value)
			if res.FailedCount > 1 {
				sample += fmt.Sprintf(" (+%d more)", res.FailedCount-1)
			}
		}

		tw.AppendRow(table.Row{
			i + 1,
			res.Rule.Name(),
			res.Rule.EffectiveSeverity(),
			status,
			res.FailedCount,
			sample,
		})
	}

	tw.AppendFooter(table.Row{
		"", "", "",
		fmt.Sprintf("%d rules", len(r.Results)),
		fmt.Sprintf("%d hard, %d warn", r.HardFailures(), r.Warnings()),
		fmt.Sprintf("%d rows", r.RowCount),
	})
	tw.Render()
}
