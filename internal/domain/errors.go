package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is classification. Structured error types below
// unwrap to these so callers can branch on kind without inspecting fields.
var (
	// ErrNotFound indicates an unknown project, trial, or task id.
	ErrNotFound = errors.New("not found")

	// ErrUnmetDependency indicates a stage was started before its
	// prerequisite stage completed. Resolvable only by completing the
	// prerequisite; never a server fault.
	ErrUnmetDependency = errors.New("unmet stage dependency")

	// ErrConflictAlreadyRunning indicates a non-terminal task already
	// occupies the (trial, type) slot. Callers should poll and back off.
	ErrConflictAlreadyRunning = errors.New("task already running for trial and type")

	// ErrInvalidTransition indicates a lifecycle transition outside
	// not_started → in_progress → {completed, failed}.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskFinalized indicates a transition was attempted on a terminal
	// task. Terminal tasks are immutable; this is a caller bug.
	ErrTaskFinalized = errors.New("task already finalized")

	// ErrProjectNameTaken indicates a project create with a duplicate name.
	ErrProjectNameTaken = errors.New("project name already exists")

	// ErrMissingSavePath indicates a completion transition without a save path.
	ErrMissingSavePath = errors.New("completed transition requires a save path")

	// ErrMissingErrorMessage indicates a failure transition without a message.
	ErrMissingErrorMessage = errors.New("failed transition requires an error message")
)

// NotFoundError reports an unknown entity by kind and id.
type NotFoundError struct {
	// Kind names the entity kind: "project", "trial", "task", "config".
	Kind string

	// ID is the identifier that was not found.
	ID string
}

// Error returns a formatted message naming the missing entity.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Unwrap enables errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UnmetDependencyError reports which prerequisite blocked a stage start.
// It carries enough structure for the caller to decide whether to resubmit.
type UnmetDependencyError struct {
	// Stage is the stage the caller attempted to start.
	Stage TaskType

	// Missing is the prerequisite stage that has not completed.
	Missing TaskType
}

// Error returns a formatted message naming the stage and its missing prerequisite.
func (e *UnmetDependencyError) Error() string {
	return fmt.Sprintf("cannot start %s: requires a completed %s task", e.Stage, e.Missing)
}

// Unwrap enables errors.Is(err, ErrUnmetDependency).
func (e *UnmetDependencyError) Unwrap() error { return ErrUnmetDependency }

// ConflictError reports the task occupying a (trial, type) slot.
type ConflictError struct {
	// TrialID is the trial whose slot is occupied.
	TrialID string

	// Type is the contested stage type.
	Type TaskType

	// RunningTaskID identifies the non-terminal task holding the slot,
	// so callers can poll it directly.
	RunningTaskID string
}

// Error returns a formatted message naming the occupied slot.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("a %s task (%s) is already running for trial %s", e.Type, e.RunningTaskID, e.TrialID)
}

// Unwrap enables errors.Is(err, ErrConflictAlreadyRunning).
func (e *ConflictError) Unwrap() error { return ErrConflictAlreadyRunning }

// InvalidTransitionError reports an out-of-order lifecycle transition.
type InvalidTransitionError struct {
	// TaskID identifies the task.
	TaskID string

	// From is the task's current status.
	From Status

	// To is the requested target status.
	To Status
}

// Error returns a formatted message describing the rejected transition.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot transition %s to %s", e.TaskID, e.From, e.To)
}

// Unwrap enables errors.Is(err, ErrInvalidTransition).
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// TaskFinalizedError reports a transition attempt on a terminal task.
type TaskFinalizedError struct {
	// TaskID identifies the task.
	TaskID string

	// Status is the terminal status the task holds.
	Status Status
}

// Error returns a formatted message naming the terminal task.
func (e *TaskFinalizedError) Error() string {
	return fmt.Sprintf("task %s is %s and cannot be re-transitioned", e.TaskID, e.Status)
}

// Unwrap enables errors.Is(err, ErrTaskFinalized).
func (e *TaskFinalizedError) Unwrap() error { return ErrTaskFinalized }
