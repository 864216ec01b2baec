package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// stubBatch is a configurable Batch implementation for orchestrator tests
type stubBatch struct {
	name        string
	items       []WorkItem
	resolveErr  error
	concurrency int
	process     func(ctx context.Context, item WorkItem) models.ItemOutcome
	summary     interface{}
	boundTask   string
}

func (b *stubBatch) Name() string { return b.name }

func (b *stubBatch) BindTask(taskID string) { b.boundTask = taskID }

func (b *stubBatch) Resolve(ctx context.Context) ([]WorkItem, error) {
	if b.resolveErr != nil {
		return nil, b.resolveErr
	}
	return b.items, nil
}

func (b *stubBatch) Processor() Processor { return processorFunc(b.process) }

func (b *stubBatch) Concurrency() int {
	if b.concurrency < 1 {
		return 1
	}
	return b.concurrency
}

func (b *stubBatch) Finalize(ctx context.Context, outcomes []models.ItemOutcome) interface{} {
	return b.summary
}

type processorFunc func(ctx context.Context, item WorkItem) models.ItemOutcome

func (f processorFunc) ProcessItem(ctx context.Context, item WorkItem) models.ItemOutcome {
	return f(ctx, item)
}

func succeed(ctx context.Context, item WorkItem) models.ItemOutcome {
	return models.ItemOutcome{ItemID: item.ID, Status: models.OutcomeSuccess, Payload: item.ID + "-done"}
}

func itemsOf(ids ...string) []WorkItem {
	items := make([]WorkItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, WorkItem{ID: id})
	}
	return items
}

func newTestOrchestrator(t *testing.T, retention time.Duration) (*Orchestrator, *Registry) {
	t.Helper()
	registry := NewRegistry(common.GetLogger())
	t.Cleanup(registry.Close)
	return NewOrchestrator(registry, retention, common.GetLogger()), registry
}

func TestSubmitReturnsPendingTask(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	started := make(chan struct{})
	batch := &stubBatch{
		name:  "test",
		items: itemsOf("a"),
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			<-started
			return succeed(ctx, item)
		},
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)
	assert.Equal(t, taskID, batch.boundTask)

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.False(t, record.IsTerminal())

	close(started)
	orch.Wait()
}

func TestPartialFailureCompletesTask(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	batch := &stubBatch{
		name:        "test",
		items:       itemsOf("a", "b", "c"),
		concurrency: 3,
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			if item.ID == "b" {
				return models.ItemOutcome{ItemID: item.ID, Status: models.OutcomeFailed, Error: "generation refused"}
			}
			return succeed(ctx, item)
		},
		summary: "done",
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, record.Status)
	assert.Equal(t, 100, record.Progress)
	assert.Equal(t, 3, record.TotalItems)
	assert.Equal(t, 3, record.CompletedItems)
	assert.Empty(t, record.Error)

	require.NotNil(t, record.Result)
	assert.Equal(t, 2, record.Result.Succeeded)
	assert.Equal(t, 1, record.Result.Failed)
	assert.Equal(t, "done", record.Result.Summary)

	// Exactly one outcome per input item, in input order
	require.Len(t, record.Result.Outcomes, 3)
	assert.Equal(t, "a", record.Result.Outcomes[0].ItemID)
	assert.Equal(t, "b", record.Result.Outcomes[1].ItemID)
	assert.Equal(t, "c", record.Result.Outcomes[2].ItemID)
	assert.Equal(t, models.OutcomeSuccess, record.Result.Outcomes[0].Status)
	assert.Equal(t, models.OutcomeFailed, record.Result.Outcomes[1].Status)
	assert.Equal(t, models.OutcomeSuccess, record.Result.Outcomes[2].Status)
}

func TestOutcomesKeepInputOrderNotCompletionOrder(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	delays := map[string]time.Duration{"a": 40 * time.Millisecond, "b": 20 * time.Millisecond, "c": 0}
	batch := &stubBatch{
		name:        "test",
		items:       itemsOf("a", "b", "c"),
		concurrency: 3,
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			time.Sleep(delays[item.ID])
			return succeed(ctx, item)
		},
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	require.NotNil(t, record.Result)
	require.Len(t, record.Result.Outcomes, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, record.Result.Outcomes[i].ItemID)
		assert.Equal(t, id+"-done", record.Result.Outcomes[i].Payload)
	}
}

func TestDuplicateItemIDsKeepSeparateOutcomes(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	// Concurrency 1 makes call order match input order
	calls := 0
	batch := &stubBatch{
		name:        "test",
		items:       itemsOf("a", "a", "b"),
		concurrency: 1,
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			calls++
			if item.ID == "a" && calls == 2 {
				return models.ItemOutcome{ItemID: item.ID, Status: models.OutcomeFailed, Error: "second call refused"}
			}
			return succeed(ctx, item)
		},
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, record.Status)
	assert.Equal(t, 3, record.CompletedItems)

	// Repeated IDs each keep their own slot instead of collapsing
	require.NotNil(t, record.Result)
	require.Len(t, record.Result.Outcomes, 3)
	assert.Equal(t, "a", record.Result.Outcomes[0].ItemID)
	assert.Equal(t, "a", record.Result.Outcomes[1].ItemID)
	assert.Equal(t, "b", record.Result.Outcomes[2].ItemID)
	assert.Equal(t, models.OutcomeSuccess, record.Result.Outcomes[0].Status)
	assert.Equal(t, models.OutcomeFailed, record.Result.Outcomes[1].Status)
	assert.Equal(t, models.OutcomeSuccess, record.Result.Outcomes[2].Status)
	assert.Equal(t, 2, record.Result.Succeeded)
	assert.Equal(t, 1, record.Result.Failed)
}

func TestResolveFailureFailsTask(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	batch := &stubBatch{
		name:       "test",
		resolveErr: fmt.Errorf("keyword storage offline"),
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusFailed, record.Status)
	assert.Contains(t, record.Error, "keyword storage offline")
	assert.Nil(t, record.Result)
}

func TestEmptyResolveFailsTask(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	batch := &stubBatch{name: "test", items: nil}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, record.Status)
	assert.Contains(t, record.Error, "no items found")
}

func TestProcessorPanicFailsOnlyThatItem(t *testing.T) {
	orch, registry := newTestOrchestrator(t, time.Hour)

	batch := &stubBatch{
		name:  "test",
		items: itemsOf("a", "b"),
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			if item.ID == "a" {
				panic("nil frame data")
			}
			return succeed(ctx, item)
		},
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, record.Status)
	require.NotNil(t, record.Result)
	assert.Equal(t, models.OutcomeFailed, record.Result.Outcomes[0].Status)
	assert.Contains(t, record.Result.Outcomes[0].Error, "panic")
	assert.Equal(t, models.OutcomeSuccess, record.Result.Outcomes[1].Status)
}

func TestGroupsRunSequentially(t *testing.T) {
	orch, _ := newTestOrchestrator(t, time.Hour)

	var mu = make(chan struct{}, 1)
	mu <- struct{}{}
	inFlight := 0
	maxInFlight := 0

	batch := &stubBatch{
		name:        "test",
		items:       itemsOf("a", "b", "c", "d", "e"),
		concurrency: 2,
		process: func(ctx context.Context, item WorkItem) models.ItemOutcome {
			<-mu
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu <- struct{}{}

			time.Sleep(10 * time.Millisecond)

			<-mu
			inFlight--
			mu <- struct{}{}
			return succeed(ctx, item)
		},
	}

	_, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	assert.LessOrEqual(t, maxInFlight, 2)
	assert.GreaterOrEqual(t, maxInFlight, 1)
}

func TestCompletedTaskEvictedAfterRetention(t *testing.T) {
	orch, registry := newTestOrchestrator(t, 20*time.Millisecond)

	batch := &stubBatch{
		name:    "test",
		items:   itemsOf("a"),
		process: succeed,
	}

	taskID, err := orch.Submit(context.Background(), "user-1", batch)
	require.NoError(t, err)
	orch.Wait()

	require.Eventually(t, func() bool {
		_, err := registry.Get(context.Background(), taskID)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	_, err = registry.Get(context.Background(), taskID)
	assert.ErrorIs(t, err, interfaces.ErrTaskNotFound)
}
