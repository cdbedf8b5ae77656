// Package state tracks pipeline run history in a local SQLite database:
// runs, per-stage results, and loaded snapshot fingerprints. The store is
// what makes re-runs observable and idempotence checkable.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageStatus is the lifecycle status of one stage within a run.
type StageStatus string

const (
	StageStatusPending StageStatus = "pending"
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
)

// Run is one pipeline execution over a single snapshot.
type Run struct {
	ID string
	// Snapshot is the sha256 fingerprint of the raw input.
	Snapshot    string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// StageRun is the recorded outcome of one stage within a run.
type StageRun struct {
	ID         int64
	RunID      string
	Stage      string
	Status     StageStatus
	Rows       int64
	Error      string
	StartedAt  time.Time
	DurationMS int64
}

// Snapshot records that a fingerprinted input batch has been loaded.
type Snapshot struct {
	Fingerprint string
	RunID       string
	RowCount    int64
	LoadedAt    time.Time
}

// Store is the run-state persistence interface.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(snapshot string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordStageRun(runID, stage string) (*StageRun, error)
	UpdateStageRun(id int64, status StageStatus, rows int64, errMsg string, durationMS int64) error
	GetStageRuns(runID string) ([]*StageRun, error)

	SaveSnapshot(fingerprint, runID string, rowCount int64) error
	GetSnapshot(fingerprint string) (*Snapshot, error)
}
