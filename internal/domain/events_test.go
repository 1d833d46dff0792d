package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventForStatus(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   EventType
		ok     bool
	}{
		{name: "in_progress maps to started", status: StatusInProgress, want: EventTaskStarted, ok: true},
		{name: "completed maps to completed", status: StatusCompleted, want: EventTaskCompleted, ok: true},
		{name: "failed maps to failed", status: StatusFailed, want: EventTaskFailed, ok: true},
		{name: "not_started has no transition event", status: StatusNotStarted, ok: false},
		{name: "unknown status has no event", status: Status("bogus"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventForStatus(tt.status)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTaskEventPayload_Validate(t *testing.T) {
	valid := func() TaskEventPayload {
		return TaskEventPayload{
			TaskID:     uuid.New().String(),
			ProjectID:  uuid.New().String(),
			TaskType:   TaskParse,
			Status:     StatusInProgress,
			OccurredAt: time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*TaskEventPayload)
		wantErr string
	}{
		{name: "valid payload", mutate: func(*TaskEventPayload) {}},
		{
			name:    "missing task id",
			mutate:  func(p *TaskEventPayload) { p.TaskID = "" },
			wantErr: "TaskID",
		},
		{
			name:    "task id not a uuid",
			mutate:  func(p *TaskEventPayload) { p.TaskID = "not-a-uuid" },
			wantErr: "TaskID",
		},
		{
			name:    "missing project id",
			mutate:  func(p *TaskEventPayload) { p.ProjectID = "" },
			wantErr: "ProjectID",
		},
		{
			name:    "missing task type",
			mutate:  func(p *TaskEventPayload) { p.TaskType = "" },
			wantErr: "TaskType",
		},
		{
			name:    "missing status",
			mutate:  func(p *TaskEventPayload) { p.Status = "" },
			wantErr: "Status",
		},
		{
			name:    "zero occurred at",
			mutate:  func(p *TaskEventPayload) { p.OccurredAt = time.Time{} },
			wantErr: "OccurredAt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTaskEventIdempotencyKey(t *testing.T) {
	taskID := uuid.New().String()

	t.Run("deterministic for same transition", func(t *testing.T) {
		k1 := TaskEventIdempotencyKey(taskID, StatusCompleted)
		k2 := TaskEventIdempotencyKey(taskID, StatusCompleted)
		assert.Equal(t, k1, k2)
		assert.Len(t, k1, 32) // 16 bytes hex encoded
	})

	t.Run("distinct across statuses", func(t *testing.T) {
		started := TaskEventIdempotencyKey(taskID, StatusInProgress)
		completed := TaskEventIdempotencyKey(taskID, StatusCompleted)
		assert.NotEqual(t, started, completed)
	})

	t.Run("distinct across tasks", func(t *testing.T) {
		other := TaskEventIdempotencyKey(uuid.New().String(), StatusCompleted)
		assert.NotEqual(t, TaskEventIdempotencyKey(taskID, StatusCompleted), other)
	})
}
