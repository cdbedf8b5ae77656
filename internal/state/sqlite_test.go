package state

import (
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_CreateAndGetRun(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("sha256:abc")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected non-empty run ID")
	}
	if run.Status != RunStatusRunning {
		t.Errorf("expected running status, got %s", run.Status)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Snapshot != "sha256:abc" {
		t.Errorf("unexpected snapshot: %s", got.Snapshot)
	}
	if got.CompletedAt != nil {
		t.Error("expected nil completed_at for running run")
	}
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.GetRun("missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestSQLiteStore_CompleteRun(t *testing.T) {
	store := setupTestStore(t)

	run, _ := store.CreateRun("sha256:abc")
	if err := store.CompleteRun(run.ID, RunStatusFailed, "validation failed"); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, _ := store.GetRun(run.ID)
	if got.Status != RunStatusFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if got.Error != "validation failed" {
		t.Errorf("unexpected error message: %s", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestSQLiteStore_CompleteRun_NotFound(t *testing.T) {
	store := setupTestStore(t)
	if err := store.CompleteRun("missing", RunStatusCompleted, ""); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	first, _ := store.CreateRun("sha256:a")
	time.Sleep(5 * time.Millisecond)
	second, _ := store.CreateRun("sha256:b")

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Error("expected newest-first ordering")
	}
}

func TestSQLiteStore_StageRuns(t *testing.T) {
	store := setupTestStore(t)
	run, _ := store.CreateRun("sha256:abc")

	extract, err := store.RecordStageRun(run.ID, "extract")
	if err != nil {
		t.Fatalf("failed to record stage run: %v", err)
	}
	clean, _ := store.RecordStageRun(run.ID, "clean")

	if err := store.UpdateStageRun(extract.ID, StageStatusSuccess, 1470, "", 12); err != nil {
		t.Fatalf("failed to update stage run: %v", err)
	}
	if err := store.UpdateStageRun(clean.ID, StageStatusFailed, 0, "boom", 3); err != nil {
		t.Fatalf("failed to update stage run: %v", err)
	}

	stages, err := store.GetStageRuns(run.ID)
	if err != nil {
		t.Fatalf("failed to get stage runs: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stage runs, got %d", len(stages))
	}
	if stages[0].Stage != "extract" || stages[0].Status != StageStatusSuccess || stages[0].Rows != 1470 {
		t.Errorf("unexpected first stage: %+v", stages[0])
	}
	if stages[1].Status != StageStatusFailed || stages[1].Error != "boom" {
		t.Errorf("unexpected second stage: %+v", stages[1])
	}
}

func TestSQLiteStore_Snapshots(t *testing.T) {
	store := setupTestStore(t)
	run, _ := store.CreateRun("sha256:abc")

	snap, err := store.GetSnapshot("sha256:abc")
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil for unknown snapshot")
	}

	if err := store.SaveSnapshot("sha256:abc", run.ID, 1470); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	snap, err = store.GetSnapshot("sha256:abc")
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if snap == nil || snap.RowCount != 1470 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// Re-saving the same fingerprint upserts.
	run2, _ := store.CreateRun("sha256:abc")
	if err := store.SaveSnapshot("sha256:abc", run2.ID, 1470); err != nil {
		t.Fatalf("failed to upsert snapshot: %v", err)
	}
	snap, _ = store.GetSnapshot("sha256:abc")
	if snap.RunID != run2.ID {
		t.Errorf("expected snapshot to point at latest run, got %s", snap.RunID)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	if _, err := store.CreateRun("x"); err == nil {
		t.Error("expected error on unopened store")
	}
	if err := store.InitSchema(); err == nil {
		t.Error("expected error on unopened store")
	}
}
