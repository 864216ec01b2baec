package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/pd-experiments/vendere/internal/models"
)

// ErrTaskNotFound is returned for unknown task IDs. Evicted records and
// IDs that never existed are deliberately indistinguishable.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the registry of task records. The default implementation
// is process-local and in-memory: a restart loses all in-flight tasks.
// The interface exists so a durable implementation (e.g. a persistent
// key-value table) can be substituted without changing the orchestrator.
type TaskStore interface {
	// Create allocates a new record in the pending state for the owner
	// and returns a copy of it.
	Create(ctx context.Context, owner string) (*models.TaskRecord, error)

	// Get returns a copy of the record, or ErrTaskNotFound if the ID is
	// unknown or the record has been evicted.
	Get(ctx context.Context, id string) (*models.TaskRecord, error)

	// Update applies a single mutation under the store's lock and
	// refreshes the record's UpdatedAt. Concurrent mutations to the same
	// record are serialized.
	Update(ctx context.Context, id string, mutate func(*models.TaskRecord)) error

	// ScheduleEviction arms a one-shot deletion of the record after the
	// given duration. Repeated calls for the same ID do not re-arm.
	ScheduleEviction(id string, after time.Duration)

	// Close stops pending eviction timers
	Close()
}
