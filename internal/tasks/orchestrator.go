// -----------------------------------------------------------------------
// Batch Orchestrator - Fan-out, aggregation, and task lifecycle
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// Progress milestones. The source system drove progress by coarse
// orchestration milestones rather than a completed/total ratio, and that
// scheme is kept: values are approximate but monotonic, which is all the
// polling clients assume.
const (
	progressFanOutStart  = 10  // detached run started
	progressResolved     = 30  // prerequisite fetch done
	progressDispatching  = 50  // about to dispatch external calls
	progressFinalization = 100 // aggregate written
)

// Orchestrator accepts batch submissions, runs them in detached
// panic-safe goroutines, and owns all mutations of their task records.
type Orchestrator struct {
	store     interfaces.TaskStore
	retention time.Duration
	logger    arbor.ILogger
	wg        sync.WaitGroup
}

// NewOrchestrator creates a batch orchestrator using the given task store.
// Terminal records are evicted after the retention window.
func NewOrchestrator(store interfaces.TaskStore, retention time.Duration, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// Submit creates a task record for the batch and returns its ID
// immediately. The batch itself runs in a detached goroutine; callers
// poll the task store for progress and the terminal result.
//
// Request-shape validation belongs to the HTTP layer and happens before
// Submit: by the time a batch gets here it is well-formed, and the only
// remaining failure path is the prerequisite fetch inside the run.
func (o *Orchestrator) Submit(ctx context.Context, owner string, batch Batch) (string, error) {
	record, err := o.store.Create(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("failed to create task record: %w", err)
	}

	o.logger.Info().
		Str("task_id", record.ID).
		Str("owner", owner).
		Str("batch", batch.Name()).
		Msg("Batch submitted")

	if aware, ok := batch.(TaskAware); ok {
		aware.BindTask(record.ID)
	}

	o.wg.Add(1)
	common.SafeGo(o.logger, "task:"+record.ID, func() {
		defer o.wg.Done()
		// Detached from the request context deliberately: the client
		// disconnecting must not cancel a submitted batch.
		o.run(context.Background(), record.ID, batch)
	})

	return record.ID, nil
}

// Wait blocks until all in-flight batches finish. Used by shutdown and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run executes one batch end to end. Every error path ends in a terminal
// task state with eviction armed; nothing may leave the record stuck in
// processing.
func (o *Orchestrator) run(ctx context.Context, taskID string, batch Batch) {
	taskLogger := o.logger.WithCorrelationId(taskID)

	o.update(taskID, func(t *models.TaskRecord) {
		t.MarkProcessing()
		t.SetProgress(progressFanOutStart)
	})

	items, err := batch.Resolve(ctx)
	if err != nil {
		taskLogger.Warn().Err(err).Str("batch", batch.Name()).Msg("Prerequisite fetch failed")
		o.fail(taskID, fmt.Sprintf("failed to resolve batch items: %v", err))
		return
	}
	if len(items) == 0 {
		taskLogger.Warn().Str("batch", batch.Name()).Msg("Prerequisite fetch produced no items")
		o.fail(taskID, "no items found")
		return
	}

	o.update(taskID, func(t *models.TaskRecord) {
		t.TotalItems = len(items)
		t.SetProgress(progressResolved)
	})

	taskLogger.Info().
		Str("batch", batch.Name()).
		Int("items", len(items)).
		Int("concurrency", batch.Concurrency()).
		Msg("Dispatching work items")

	o.update(taskID, func(t *models.TaskRecord) {
		t.SetProgress(progressDispatching)
	})

	outcomes := o.fanOut(ctx, taskID, batch, items)

	summary := batch.Finalize(ctx, outcomes)

	result := &models.BatchResult{
		Outcomes: outcomes,
		Summary:  summary,
	}
	for _, outcome := range outcomes {
		if outcome.Status == models.OutcomeSuccess {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	o.update(taskID, func(t *models.TaskRecord) {
		t.MarkCompleted(result)
		t.SetProgress(progressFinalization)
	})
	o.store.ScheduleEviction(taskID, o.retention)

	taskLogger.Info().
		Str("batch", batch.Name()).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Batch completed")
}

// fanOut processes items in groups of batch.Concurrency(): full
// parallelism within a group, sequential across groups, so the external
// generation service is never hit with the whole batch at once.
//
// Outcomes are attributed by input position, so every input slot gets its
// own outcome even when item IDs repeat; completion order is irrelevant.
func (o *Orchestrator) fanOut(ctx context.Context, taskID string, batch Batch, items []WorkItem) []models.ItemOutcome {
	groupSize := batch.Concurrency()
	if groupSize < 1 {
		groupSize = 1
	}

	processor := batch.Processor()
	outcomes := make([]models.ItemOutcome, len(items))

	for start := 0; start < len(items); start += groupSize {
		end := start + groupSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for offset, item := range items[start:end] {
			wg.Add(1)
			// Each goroutine owns one distinct slot of the outcomes slice
			go func(idx int, item WorkItem) {
				defer wg.Done()
				outcomes[idx] = o.processItem(ctx, processor, item)

				o.update(taskID, func(t *models.TaskRecord) {
					t.CompletedItems++
				})
			}(start+offset, item)
		}
		wg.Wait()
	}

	return outcomes
}

// processItem invokes the processor with a panic guard. A panicking
// processor yields a failed outcome for that item, nothing more.
func (o *Orchestrator) processItem(ctx context.Context, processor Processor, item WorkItem) (outcome models.ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("item_id", item.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Work item processor panicked")
			outcome = models.ItemOutcome{
				ItemID: item.ID,
				Status: models.OutcomeFailed,
				Error:  fmt.Sprintf("processor panic: %v", r),
			}
		}
	}()

	return processor.ProcessItem(ctx, item)
}

// fail moves the task into the failed terminal state and arms eviction
func (o *Orchestrator) fail(taskID, errorMsg string) {
	o.update(taskID, func(t *models.TaskRecord) {
		t.MarkFailed(errorMsg)
	})
	o.store.ScheduleEviction(taskID, o.retention)
}

// update applies a mutation, logging store errors instead of propagating
// them: the record may already have been evicted under a very short
// retention window, which is not an orchestration failure.
func (o *Orchestrator) update(taskID string, mutate func(*models.TaskRecord)) {
	if err := o.store.Update(context.Background(), taskID, mutate); err != nil {
		o.logger.Warn().Err(err).Str("task_id", taskID).Msg("Task record update failed")
	}
}
