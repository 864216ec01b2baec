// -----------------------------------------------------------------------
// Task Record - Mutable lifecycle state for one submitted batch
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// TaskStatus represents the lifecycle state of a batch task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// OutcomeStatus represents the terminal state of one work item
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ItemOutcome is the terminal result of one work item within a batch.
// A batch's result carries exactly one outcome per input item, whatever
// happened to the individual calls.
type ItemOutcome struct {
	ItemID  string        `json:"item_id"`
	Status  OutcomeStatus `json:"status"`
	Payload interface{}   `json:"payload,omitempty"` // present only on success
	Error   string        `json:"error,omitempty"`   // present only on failure
}

// BatchResult is the aggregate written to a task record on completion
type BatchResult struct {
	Outcomes  []ItemOutcome `json:"outcomes"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Summary   interface{}   `json:"summary,omitempty"` // batch-type specific payload
}

// TaskRecord tracks the lifecycle, progress, and terminal result of one
// submitted batch. Records are mutated only by the owning orchestration
// goroutine (single-writer discipline); everyone else reads copies served
// by the registry.
//
// State machine: pending -> processing -> {completed, failed}. Terminal
// states are final. Exactly one of Result/Error is populated once the
// record leaves pending/processing.
type TaskRecord struct {
	ID             string       `json:"id"`
	Owner          string       `json:"owner"`
	Status         TaskStatus   `json:"status"`
	Progress       int          `json:"progress"` // [0,100], monotonically non-decreasing
	TotalItems     int          `json:"total_items"`
	CompletedItems int          `json:"completed_items"` // items with a terminal outcome, success or failure
	Result         *BatchResult `json:"result,omitempty"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewTaskRecord creates a task record in the pending state
func NewTaskRecord(id, owner string) *TaskRecord {
	now := time.Now()
	return &TaskRecord{
		ID:        id,
		Owner:     owner,
		Status:    TaskStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal returns true once the record reached completed or failed
func (t *TaskRecord) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// MarkProcessing transitions pending -> processing. No-op on terminal
// records: status transitions are monotonic.
func (t *TaskRecord) MarkProcessing() {
	if t.IsTerminal() {
		return
	}
	t.Status = TaskStatusProcessing
}

// SetProgress raises the progress percentage. Decreases are ignored so
// polling clients always observe non-decreasing values.
func (t *TaskRecord) SetProgress(progress int) {
	if progress < 0 {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > t.Progress {
		t.Progress = progress
	}
}

// MarkCompleted transitions into the completed terminal state with the
// aggregate result. No-op if the record is already terminal.
func (t *TaskRecord) MarkCompleted(result *BatchResult) {
	if t.IsTerminal() {
		return
	}
	t.Status = TaskStatusCompleted
	t.Result = result
	t.Error = ""
	t.Progress = 100
}

// MarkFailed transitions into the failed terminal state. This is reached
// only for orchestration-level errors; individual item failures never
// fail a batch. No-op if the record is already terminal.
func (t *TaskRecord) MarkFailed(errorMsg string) {
	if t.IsTerminal() {
		return
	}
	t.Status = TaskStatusFailed
	t.Error = errorMsg
	t.Result = nil
}

// Clone returns a deep-enough copy for handing to readers outside the
// owning orchestration goroutine.
func (t *TaskRecord) Clone() *TaskRecord {
	clone := *t
	if t.Result != nil {
		result := *t.Result
		result.Outcomes = make([]ItemOutcome, len(t.Result.Outcomes))
		copy(result.Outcomes, t.Result.Outcomes)
		clone.Result = &result
	}
	return &clone
}
