package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/driftline-labs/hrflow/internal/clean"
	"github.com/driftline-labs/hrflow/internal/table"
	"github.com/driftline-labs/hrflow/internal/testutil"
	"github.com/driftline-labs/hrflow/internal/validate"
)

func execute(t *testing.T, cmd *cobra.Command) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	out, err := execute(t, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, "hrflow v1.2.3") {
		t.Errorf("output should contain version, got: %s", out)
	}
}

func TestDAGCommand(t *testing.T) {
	cmd := NewDAGCommand()
	out, err := execute(t, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, stage := range []string{"extract", "clean", "validate", "load"} {
		if !strings.Contains(out, stage) {
			t.Errorf("output missing stage %s: %s", stage, out)
		}
	}
	if !strings.Contains(out, "4 stages, 3 dependencies") {
		t.Errorf("unexpected summary: %s", out)
	}
	if !strings.Contains(out, "Entry: extract") || !strings.Contains(out, "Terminal: load") {
		t.Errorf("output missing entry/terminal stages: %s", out)
	}
}

func TestDAGCommand_StageClosure(t *testing.T) {
	cmd := NewDAGCommand()
	cmd.SetArgs([]string{"clean"})
	out, err := execute(t, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, stage := range []string{"clean", "validate", "load"} {
		if !strings.Contains(out, stage) {
			t.Errorf("closure missing stage %s: %s", stage, out)
		}
	}
	if strings.Contains(out, "extract") {
		t.Errorf("closure must not include upstream stages: %s", out)
	}
	if !strings.Contains(out, "3 stage(s)") {
		t.Errorf("unexpected closure size: %s", out)
	}

	cmd = NewDAGCommand()
	cmd.SetArgs([]string{"compress"})
	if _, err := execute(t, cmd); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestDAGCommand_JSON(t *testing.T) {
	cmd := NewDAGCommand()
	cmd.SetArgs([]string{"--json"})
	out, err := execute(t, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, `"stages": 4`) {
		t.Errorf("unexpected JSON: %s", out)
	}
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")

	cmd := NewInitCommand()
	cmd.SetArgs([]string{dir})
	out, err := execute(t, cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, "hrflow.yaml") {
		t.Errorf("unexpected output: %s", out)
	}

	for _, f := range []string{"hrflow.yaml", "suite.yaml", "data", "output"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}

	// The generated suite must parse.
	suite, err := validate.LoadSuite(filepath.Join(dir, "suite.yaml"))
	if err != nil {
		t.Fatalf("generated suite does not parse: %v", err)
	}
	if len(suite.Rules) == 0 {
		t.Error("generated suite has no rules")
	}

	// Second init without --force refuses.
	cmd = NewInitCommand()
	cmd.SetArgs([]string{dir})
	if _, err := execute(t, cmd); err == nil {
		t.Error("expected error on re-init without --force")
	}

	// --force overwrites.
	cmd = NewInitCommand()
	cmd.SetArgs([]string{dir, "--force"})
	if _, err := execute(t, cmd); err != nil {
		t.Errorf("re-init with --force failed: %v", err)
	}
}

func TestReadReport(t *testing.T) {
	// Missing report reads as nil, which the loader refuses.
	report, err := readReport(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing report should not error: %v", err)
	}
	if report != nil {
		t.Error("missing report should read as nil")
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte(`{"suite":"hr_default","row_count":3,"results":[]}`), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	report, err = readReport(path)
	if err != nil {
		t.Fatalf("readReport failed: %v", err)
	}
	if report.Suite != "hr_default" || report.RowCount != 3 {
		t.Errorf("unexpected report: %+v", report)
	}

	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if _, err := readReport(path); err == nil {
		t.Error("expected error for malformed report")
	}
}

func TestReadCleanTable_RestoresTypes(t *testing.T) {
	raw, err := table.ReadCSV(strings.NewReader(testutil.RawCSV(2)))
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

	path := filepath.Join(t.TempDir(), "clean.csv")
	if err := cleaned.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	read, err := readCleanTable(path)
	if err != nil {
		t.Fatalf("readCleanTable failed: %v", err)
	}
	for i, c := range read.Columns() {
		if want := cleaned.Columns()[i]; c.Type != want.Type {
			t.Errorf("column %s: expected type %s, got %s", c.Name, want.Type, c.Type)
		}
	}
	if v, _ := read.Value(0, "monthly_income"); v != int64(5993) {
		t.Errorf("expected typed income cell, got %#v", v)
	}
}
