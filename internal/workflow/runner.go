package workflow

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// TaskQueue is the Temporal task queue stage workflows run on.
const TaskQueue = "trialforge-stages"

// TemporalRunner dispatches stage jobs as Temporal workflow executions. The
// workflow id is derived from the task id, so a redelivered dispatch for the
// same task collides with the running execution instead of duplicating work.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
}

// NewTemporalRunner creates a runner backed by the given Temporal client.
// An empty taskQueue selects the default stage queue.
func NewTemporalRunner(c client.Client, taskQueue string) *TemporalRunner {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	return &TemporalRunner{client: c, taskQueue: taskQueue}
}

// Dispatch starts a stage workflow for the job and returns without waiting
// for it to finish.
func (r *TemporalRunner) Dispatch(ctx context.Context, req domain.JobRequest) error {
	opts := client.StartWorkflowOptions{
		ID:        "stage-" + req.TaskID,
		TaskQueue: r.taskQueue,
	}

	if _, err := r.client.ExecuteWorkflow(ctx, opts, StageWorkflow, req); err != nil {
		return fmt.Errorf("failed to start stage workflow for task %s: %w", req.TaskID, err)
	}
	return nil
}
