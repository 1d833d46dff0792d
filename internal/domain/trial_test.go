package domain //nolint:testpackage // Need access to unexported validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskAt(t *testing.T, offset time.Duration, taskType TaskType, status Status) *Task {
	t.Helper()

	task, err := NewTask(taskType, "proj-1", "trial-1", "", nil)
	require.NoError(t, err)
	task.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	task.Status = status
	switch status {
	case StatusCompleted:
		task.SavePath = "/data/out"
	case StatusFailed:
		task.ErrorMessage = "boom"
	}
	return task
}

func TestDeriveTrialStatus(t *testing.T) {
	tests := []struct {
		name  string
		tasks func(t *testing.T) []*Task
		want  Status
	}{
		{
			name:  "no tasks",
			tasks: func(_ *testing.T) []*Task { return nil },
			want:  StatusNotStarted,
		},
		{
			name: "single running parse",
			tasks: func(t *testing.T) []*Task {
				return []*Task{taskAt(t, 0, TaskParse, StatusInProgress)}
			},
			want: StatusInProgress,
		},
		{
			name: "completed chain",
			tasks: func(t *testing.T) []*Task {
				return []*Task{
					taskAt(t, 0, TaskParse, StatusCompleted),
					taskAt(t, time.Minute, TaskChunk, StatusCompleted),
					taskAt(t, 2*time.Minute, TaskQA, StatusCompleted),
				}
			},
			want: StatusCompleted,
		},
		{
			name: "failed chunk fails the trial",
			tasks: func(t *testing.T) []*Task {
				return []*Task{
					taskAt(t, 0, TaskParse, StatusCompleted),
					taskAt(t, time.Minute, TaskChunk, StatusFailed),
				}
			},
			want: StatusFailed,
		},
		{
			name: "retry supersedes the failed chunk",
			tasks: func(t *testing.T) []*Task {
				return []*Task{
					taskAt(t, 0, TaskParse, StatusCompleted),
					taskAt(t, time.Minute, TaskChunk, StatusFailed),
					taskAt(t, 2*time.Minute, TaskChunk, StatusInProgress),
				}
			},
			want: StatusInProgress,
		},
		{
			name: "completed retry clears the failure",
			tasks: func(t *testing.T) []*Task {
				return []*Task{
					taskAt(t, 0, TaskParse, StatusCompleted),
					taskAt(t, time.Minute, TaskChunk, StatusFailed),
					taskAt(t, 2*time.Minute, TaskChunk, StatusCompleted),
				}
			},
			want: StatusCompleted,
		},
		{
			name: "queued task keeps the trial in progress",
			tasks: func(t *testing.T) []*Task {
				return []*Task{
					taskAt(t, 0, TaskQA, StatusCompleted),
					taskAt(t, time.Minute, TaskEvaluate, StatusNotStarted),
				}
			},
			want: StatusInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTrialStatus(tt.tasks(t)))
		})
	}
}

func TestTrial_IsClone(t *testing.T) {
	trial, err := NewTrial("proj-1", "t1", nil)
	require.NoError(t, err)
	assert.False(t, trial.IsClone())

	trial.QAPath = "/data/qa.parquet"
	assert.False(t, trial.IsClone(), "qa path alone is not a clone")

	trial.CorpusPath = "/data/corpus.parquet"
	assert.True(t, trial.IsClone())
}

func TestNewTrial(t *testing.T) {
	trial, err := NewTrial("proj-1", "t1", ConfigDocument{"top_k": 5})
	require.NoError(t, err)

	assert.NotEmpty(t, trial.ID)
	assert.Equal(t, StatusNotStarted, trial.Status)
	assert.Empty(t, trial.PreparationID)
}
