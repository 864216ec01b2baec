// -----------------------------------------------------------------------
// Work Items - Batch contract shared by every orchestrated task type
// -----------------------------------------------------------------------

package tasks

import (
	"context"

	"github.com/pd-experiments/vendere/internal/models"
)

// WorkItem is one independent unit of input within a batch. Params carry
// the denormalized context resolved during the prerequisite fetch, so the
// processor never has to re-resolve the item.
type WorkItem struct {
	ID     string
	Params map[string]interface{}
}

// Processor performs one unit of work: exactly one external generation
// call, normalized into an ItemOutcome. Implementations never let a
// failure escape their boundary; network errors, service errors, and
// malformed responses all come back as failed outcomes with a
// descriptive message.
type Processor interface {
	ProcessItem(ctx context.Context, item WorkItem) models.ItemOutcome
}

// TaskAware is implemented by batches that stamp persisted rows with the
// task that produced them. The orchestrator binds the ID once, before the
// detached run starts.
type TaskAware interface {
	BindTask(taskID string)
}

// Batch describes one submitted batch to the orchestrator. The two
// concrete instances are variant generation and video-frame ingestion;
// both share the lifecycle, fan-out, and aggregation machinery.
type Batch interface {
	// Name identifies the batch type for logging
	Name() string

	// Resolve performs the prerequisite fetch: it turns the request into
	// concrete work items with their denormalized context. An error here
	// is the only path to a failed task.
	Resolve(ctx context.Context) ([]WorkItem, error)

	// Processor returns the per-item worker for this batch
	Processor() Processor

	// Concurrency returns how many items may be processed in parallel
	// within one group. Groups run sequentially.
	Concurrency() int

	// Finalize runs after every outcome is known and returns the
	// batch-specific summary for the aggregate result. It is best-effort:
	// implementations log internal failures rather than failing the task.
	Finalize(ctx context.Context, outcomes []models.ItemOutcome) interface{}
}
