// Package domain provides the core entity model for RAG trial orchestration.
// It defines projects, trials, tasks, runs, configuration snapshots, and
// viewer sessions, together with the bounded task lifecycle and the stage
// typing that the rest of the system enforces. The types are designed to
// support auditable, asynchronous pipeline work where every attempt is an
// immutable record.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType identifies the kind of asynchronous work a task performs.
// Using typed constants instead of raw strings provides compile-time safety
// and enables exhaustive switch statements over the stage set.
type TaskType string

const (
	// TaskParse converts raw documents into parsed intermediate data.
	TaskParse TaskType = "parse"

	// TaskChunk splits parsed documents into retrieval-sized chunks.
	TaskChunk TaskType = "chunk"

	// TaskQA generates question/answer pairs from chunked data.
	TaskQA TaskType = "qa"

	// TaskValidate checks a trial configuration against its artifacts.
	TaskValidate TaskType = "validate"

	// TaskEvaluate measures a trial configuration end to end.
	TaskEvaluate TaskType = "evaluate"
)

// IsPreparation reports whether the task type belongs to the preparation
// chain (parse, chunk, qa) that builds a trial's artifacts.
func (t TaskType) IsPreparation() bool {
	return t == TaskParse || t == TaskChunk || t == TaskQA
}

// IsRun reports whether the task type is a run stage (validate, evaluate)
// that consumes artifacts to produce results.
func (t TaskType) IsRun() bool {
	return t == TaskValidate || t == TaskEvaluate
}

// Valid reports whether the task type is one of the defined stages.
func (t TaskType) Valid() bool {
	return t.IsPreparation() || t.IsRun()
}

// PreparationChain lists the preparation stages in dependency order.
// Each stage requires the previous one to have completed on the same trial.
var PreparationChain = []TaskType{TaskParse, TaskChunk, TaskQA}

// Status represents a position in the bounded task lifecycle.
// Trials and runs reuse the same value set because their statuses are
// derived projections of their constituent tasks.
type Status string

const (
	// StatusNotStarted is the initial state of every task.
	StatusNotStarted Status = "not_started"

	// StatusInProgress indicates the external job has been dispatched.
	StatusInProgress Status = "in_progress"

	// StatusCompleted is a terminal state carrying a save path.
	StatusCompleted Status = "completed"

	// StatusFailed is a terminal state carrying an error message.
	StatusFailed Status = "failed"
)

// IsTerminal reports whether the status is final. Terminal tasks are
// immutable audit records; retrying means creating a new task.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the lifecycle permits moving from s to next.
// The only legal sequences are not_started → in_progress and
// in_progress → {completed, failed}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Task is a single asynchronous unit of work tracked by the ledger.
// A task may exist before its trial is finalized (the first parse call also
// creates the trial), so TrialID is optional at creation time.
type Task struct {
	// ID uniquely identifies this task using UUID format.
	ID string `json:"id" validate:"required,uuid"`

	// ProjectID identifies the owning project.
	ProjectID string `json:"project_id" validate:"required"`

	// TrialID identifies the trial this task works on. Empty only for
	// tasks created before their trial is finalized.
	TrialID string `json:"trial_id,omitempty"`

	// Name is the caller-supplied label for this unit of work.
	Name string `json:"name,omitempty"`

	// Type identifies which stage this task executes.
	Type TaskType `json:"type" validate:"required,oneof=parse chunk qa validate evaluate"`

	// Status is the task's current lifecycle position.
	Status Status `json:"status" validate:"required,oneof=not_started in_progress completed failed"`

	// ConfigYAML is the structured configuration document for the stage.
	// It is a document, not a file path.
	ConfigYAML ConfigDocument `json:"config_yaml,omitempty"`

	// ErrorMessage is set only when the task failed.
	ErrorMessage string `json:"error_message,omitempty"`

	// SavePath is set only when the task completed. Whether it names a
	// directory or a file depends on the task type.
	SavePath string `json:"save_path,omitempty"`

	// CreatedAt records when the task record was created.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewTask creates a task in the not_started state with a generated ID.
//
// WARNING: Do not call this function inside Temporal workflow code as it uses
// nondeterministic operations (uuid.New() and time.Now()). Use MakeTask with
// caller-supplied values there.
func NewTask(taskType TaskType, projectID, trialID, name string, config ConfigDocument) (*Task, error) {
	return MakeTask(uuid.New().String(), time.Now(), taskType, projectID, trialID, name, config)
}

// MakeTask creates a task with a caller-supplied ID and timestamp.
// Safe for deterministic contexts; validation mirrors NewTask.
func MakeTask(id string, createdAt time.Time, taskType TaskType, projectID, trialID, name string, config ConfigDocument) (*Task, error) {
	task := &Task{
		ID:         id,
		ProjectID:  projectID,
		TrialID:    trialID,
		Name:       name,
		Type:       taskType,
		Status:     StatusNotStarted,
		ConfigYAML: config.Clone(),
		CreatedAt:  createdAt,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the task meets all structural requirements.
// Returns nil if valid, or a validation error describing the first violation.
func (t *Task) Validate() error {
	return validate.Struct(t)
}

// IsTerminal reports whether the task has reached a final state.
func (t *Task) IsTerminal() bool { return t.Status.IsTerminal() }

// Clone returns a deep copy of the task. Ledger reads hand out clones so
// callers can never mutate stored records.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ConfigYAML = t.ConfigYAML.Clone()
	return &cp
}
