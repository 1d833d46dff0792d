// Package workflow orchestrates stage execution using Temporal workflows.
// One workflow run corresponds to one task attempt: execute the stage, then
// report the terminal outcome back to the ledger. All workflow code must use
// workflow-safe APIs only.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/execution"
)

// StageWorkflow runs a single stage attempt. The execute activity gets
// exactly one attempt because every task is an immutable attempt record; a
// failed stage is reported as failed, never retried in place. The report
// activities retry, since the terminal transition must land for the trial's
// (type) slot to free up.
func StageWorkflow(ctx workflow.Context, req domain.JobRequest) (domain.JobResult, error) {
	// Version gate enables safe evolution and backward compatibility.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "stage.v", workflow.DefaultVersion, currentVersion)

	// Validate request early to fail fast on invalid input.
	if err := req.Validate(); err != nil {
		return domain.JobResult{}, temporal.NewNonRetryableApplicationError(
			"invalid job request",
			"Validation",
			err,
		)
	}

	var activities *execution.Activities

	executeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	reportCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})

	var result domain.JobResult
	execErr := workflow.ExecuteActivity(executeCtx, activities.ExecuteStage, req).Get(ctx, &result)
	if execErr != nil {
		report := execution.FailureReport{TaskID: req.TaskID, ErrorMessage: execErr.Error()}
		if err := workflow.ExecuteActivity(reportCtx, activities.ReportFailure, report).Get(ctx, nil); err != nil {
			workflow.GetLogger(ctx).Error("failed to report stage failure",
				"task_id", req.TaskID, "error", err)
		}
		return domain.JobResult{}, execErr
	}

	report := execution.SuccessReport{TaskID: req.TaskID, SavePath: result.SavePath}
	if err := workflow.ExecuteActivity(reportCtx, activities.ReportSuccess, report).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("failed to report stage success",
			"task_id", req.TaskID, "error", err)
		return domain.JobResult{}, err
	}

	return result, nil
}
