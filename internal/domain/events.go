package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventType represents the kind of lifecycle event emitted by the system.
// Using typed constants provides compile-time safety and enables exhaustive
// switch statements in event consumers.
type EventType string

const (
	// EventTaskCreated is emitted when a task record enters the ledger.
	EventTaskCreated EventType = "TaskCreated"

	// EventTaskStarted is emitted when a task moves to in_progress.
	EventTaskStarted EventType = "TaskStarted"

	// EventTaskCompleted is emitted when a task reaches completed.
	EventTaskCompleted EventType = "TaskCompleted"

	// EventTaskFailed is emitted when a task reaches failed.
	EventTaskFailed EventType = "TaskFailed"
)

// EventForStatus maps a lifecycle status to the event emitted on entering it.
// Returns false for not_started, which is announced by EventTaskCreated.
func EventForStatus(s Status) (EventType, bool) {
	switch s {
	case StatusInProgress:
		return EventTaskStarted, true
	case StatusCompleted:
		return EventTaskCompleted, true
	case StatusFailed:
		return EventTaskFailed, true
	default:
		return "", false
	}
}

// TaskEventPayload is the payload carried by every task lifecycle event.
// One event per transition; consumers can rebuild the full attempt history
// of a trial from the sequence.
type TaskEventPayload struct {
	// TaskID identifies the task that transitioned.
	TaskID string `json:"task_id" validate:"required,uuid"`

	// ProjectID identifies the owning project.
	ProjectID string `json:"project_id" validate:"required"`

	// TrialID identifies the trial, when the task is bound to one.
	TrialID string `json:"trial_id,omitempty"`

	// TaskType identifies the stage that transitioned.
	TaskType TaskType `json:"task_type" validate:"required"`

	// Status is the status the task entered.
	Status Status `json:"status" validate:"required"`

	// SavePath is set on completion events.
	SavePath string `json:"save_path,omitempty"`

	// ErrorMessage is set on failure events.
	ErrorMessage string `json:"error_message,omitempty"`

	// OccurredAt records when the transition happened.
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
}

// Validate checks if the payload meets all requirements.
func (p *TaskEventPayload) Validate() error {
	return validate.Struct(p)
}

// TaskEventIdempotencyKey derives a deterministic key for a task transition
// event. The same transition always yields the same key, so event sinks can
// deduplicate redeliveries.
func TaskEventIdempotencyKey(taskID string, status Status) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "task-event:%s:%s", taskID, status))
	return hex.EncodeToString(sum[:16])
}
