package domain

import "time"

// RunType identifies the kind of run a validate or evaluate task produced.
// The wire names differ from the task type names for historical reasons:
// a validate task yields a "validation" run and an evaluate task an "eval" run.
type RunType string

const (
	// RunValidation is produced by a validate task.
	RunValidation RunType = "validation"

	// RunEval is produced by an evaluate task.
	RunEval RunType = "eval"
)

// RunTypeForTask maps a run-stage task type to its run type.
// Returns false for preparation task types, which never produce runs.
func RunTypeForTask(t TaskType) (RunType, bool) {
	switch t {
	case TaskValidate:
		return RunValidation, true
	case TaskEvaluate:
		return RunEval, true
	default:
		return "", false
	}
}

// Run is the status/result record of a validate or evaluate task.
// It is a projection, not an independently created entity: its identity and
// status come entirely from the driving task, and it is materialized on read.
type Run struct {
	// ID equals the driving task's ID.
	ID string `json:"id" validate:"required,uuid"`

	// TrialID identifies the trial the run was executed against.
	TrialID string `json:"trial_id" validate:"required"`

	// Type distinguishes validation runs from evaluation runs.
	Type RunType `json:"type" validate:"required,oneof=validation eval"`

	// Status mirrors the driving task's status.
	Status Status `json:"status" validate:"required,oneof=not_started in_progress completed failed"`

	// Result carries structured output; for completed runs this includes
	// the save path of the produced artifacts, for failed runs the error.
	Result map[string]any `json:"result,omitempty"`

	// CreatedAt mirrors the driving task's creation time.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// ProjectRun materializes the run projection for a run-stage task.
// Returns false when the task is not a run stage.
func ProjectRun(task *Task) (*Run, bool) {
	runType, ok := RunTypeForTask(task.Type)
	if !ok {
		return nil, false
	}

	run := &Run{
		ID:        task.ID,
		TrialID:   task.TrialID,
		Type:      runType,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
	}

	switch task.Status {
	case StatusCompleted:
		run.Result = map[string]any{"save_path": task.SavePath}
	case StatusFailed:
		run.Result = map[string]any{"error_message": task.ErrorMessage}
	}

	return run, true
}
