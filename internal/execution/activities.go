package execution

import (
	"context"
	"fmt"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/pkg/activity"
)

// SuccessReport carries a successful stage outcome back to the ledger.
type SuccessReport struct {
	TaskID   string `json:"task_id"`
	SavePath string `json:"save_path"`
}

// FailureReport carries a failed stage outcome back to the ledger.
type FailureReport struct {
	TaskID       string `json:"task_id"`
	ErrorMessage string `json:"error_message"`
}

// Activities hosts the Temporal activities for stage execution. ExecuteStage
// does the stage work on the worker; ReportSuccess and ReportFailure apply
// the terminal transition through the reporter. All inputs and outputs are
// JSON-serializable for Temporal's payload converter.
type Activities struct {
	activity.BaseActivities

	processor StageProcessor
	reporter  Reporter
}

// NewActivities creates the stage execution activity set.
func NewActivities(base activity.BaseActivities, processor StageProcessor, reporter Reporter) *Activities {
	return &Activities{BaseActivities: base, processor: processor, reporter: reporter}
}

// ExecuteStage runs the stage processor for one job request. Errors are
// returned to the workflow, which translates them into a failure report;
// the activity has no retry policy because each task records exactly one
// attempt.
func (a *Activities) ExecuteStage(ctx context.Context, req domain.JobRequest) (domain.JobResult, error) {
	if err := req.Validate(); err != nil {
		return domain.JobResult{}, fmt.Errorf("invalid job request: %w", err)
	}

	activity.SafeLog(ctx, "Executing stage",
		"task_id", req.TaskID,
		"type", req.Type,
		"trial_id", req.TrialID)
	a.RecordHeartbeat(ctx, "stage started", req.TaskID)

	result, err := a.processor.Process(ctx, req)
	if err != nil {
		activity.SafeLogError(ctx, "Stage execution failed",
			"task_id", req.TaskID, "type", req.Type, "error", err)
		return domain.JobResult{}, err
	}

	activity.SafeLog(ctx, "Stage completed",
		"task_id", req.TaskID, "save_path", result.SavePath)
	return result, nil
}

// ReportSuccess finalizes the task as completed with its save path.
func (a *Activities) ReportSuccess(ctx context.Context, report SuccessReport) error {
	return a.reporter.OnSuccess(ctx, report.TaskID, report.SavePath)
}

// ReportFailure finalizes the task as failed with its reason.
func (a *Activities) ReportFailure(ctx context.Context, report FailureReport) error {
	return a.reporter.OnFailure(ctx, report.TaskID, report.ErrorMessage)
}
