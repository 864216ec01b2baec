// -----------------------------------------------------------------------
// Task Registry - In-memory task store with time-boxed eviction
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// Registry is the process-local TaskStore implementation. Records are
// held in a plain map guarded by a RWMutex; terminal records are evicted
// by one-shot timers after the retention window. Everything here is lost
// on restart - in-flight tasks do not survive the process, which is an
// accepted limitation of the subsystem.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*models.TaskRecord
	timers map[string]*time.Timer
	logger arbor.ILogger
	closed bool
}

// NewRegistry creates an empty task registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		tasks:  make(map[string]*models.TaskRecord),
		timers: make(map[string]*time.Timer),
		logger: logger,
	}
}

// Create allocates a new pending record and returns a copy
func (r *Registry) Create(ctx context.Context, owner string) (*models.TaskRecord, error) {
	record := models.NewTaskRecord(common.NewTaskID(), owner)

	r.mu.Lock()
	r.tasks[record.ID] = record
	r.mu.Unlock()

	r.logger.Debug().
		Str("task_id", record.ID).
		Str("owner", owner).
		Msg("Task record created")

	return record.Clone(), nil
}

// Get returns a copy of the record, or ErrTaskNotFound for unknown IDs.
// An evicted record is indistinguishable from one that never existed.
func (r *Registry) Get(ctx context.Context, id string) (*models.TaskRecord, error) {
	r.mu.RLock()
	record, ok := r.tasks[id]
	r.mu.RUnlock()

	if !ok {
		return nil, interfaces.ErrTaskNotFound
	}
	return record.Clone(), nil
}

// Update applies one mutation under the registry lock and refreshes
// UpdatedAt. The orchestrator is the only caller during a task's life
// (single-writer discipline); the lock makes the mutation safe against
// concurrent readers regardless.
func (r *Registry) Update(ctx context.Context, id string, mutate func(*models.TaskRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.tasks[id]
	if !ok {
		return interfaces.ErrTaskNotFound
	}

	mutate(record)
	record.UpdatedAt = time.Now()
	return nil
}

// ScheduleEviction arms a one-shot deletion of the record after the given
// duration. Already-armed IDs are not re-armed.
func (r *Registry) ScheduleEviction(id string, after time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, armed := r.timers[id]; armed {
		return
	}
	if _, ok := r.tasks[id]; !ok {
		return
	}

	r.timers[id] = time.AfterFunc(after, func() {
		r.evict(id)
	})
}

// evict removes a record and its timer
func (r *Registry) evict(id string) {
	r.mu.Lock()
	delete(r.tasks, id)
	delete(r.timers, id)
	r.mu.Unlock()

	r.logger.Debug().Str("task_id", id).Msg("Task record evicted")
}

// Count returns the number of live task records
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Close stops all pending eviction timers
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}
