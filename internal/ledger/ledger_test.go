package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-trialforge/internal/domain"
)

func newTask(t *testing.T, taskType domain.TaskType, trialID string) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(taskType, "proj-1", trialID, "", nil)
	require.NoError(t, err)
	return task
}

func TestInMemoryLedger_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	task := newTask(t, domain.TaskParse, "trial-1")
	require.NoError(t, l.Create(ctx, task))

	got, err := l.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.StatusNotStarted, got.Status)

	// Reads hand out detached copies.
	got.Status = domain.StatusFailed
	again, err := l.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotStarted, again.Status)
}

func TestInMemoryLedger_Get_NotFound(t *testing.T) {
	_, err := NewInMemoryLedger().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInMemoryLedger_Create_RejectsNonInitialStatus(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	task := newTask(t, domain.TaskParse, "trial-1")
	task.Status = domain.StatusInProgress
	assert.ErrorIs(t, l.Create(ctx, task), domain.ErrInvalidTransition)
}

func TestInMemoryLedger_Transition(t *testing.T) {
	tests := []struct {
		name    string
		steps   []domain.Status
		payload TransitionPayload
		wantErr error
	}{
		{
			name:    "start then complete",
			steps:   []domain.Status{domain.StatusInProgress, domain.StatusCompleted},
			payload: TransitionPayload{SavePath: "/data/out"},
		},
		{
			name:    "start then fail",
			steps:   []domain.Status{domain.StatusInProgress, domain.StatusFailed},
			payload: TransitionPayload{ErrorMessage: "oom"},
		},
		{
			name:    "complete without save path",
			steps:   []domain.Status{domain.StatusInProgress, domain.StatusCompleted},
			payload: TransitionPayload{},
			wantErr: domain.ErrMissingSavePath,
		},
		{
			name:    "fail without error message",
			steps:   []domain.Status{domain.StatusInProgress, domain.StatusFailed},
			payload: TransitionPayload{},
			wantErr: domain.ErrMissingErrorMessage,
		},
		{
			name:    "skip in_progress",
			steps:   []domain.Status{domain.StatusCompleted},
			payload: TransitionPayload{SavePath: "/data/out"},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := NewInMemoryLedger()
			task := newTask(t, domain.TaskChunk, "trial-1")
			require.NoError(t, l.Create(ctx, task))

			var err error
			for i, target := range tt.steps {
				payload := TransitionPayload{}
				if i == len(tt.steps)-1 {
					payload = tt.payload
				}
				_, err = l.Transition(ctx, task.ID, target, payload)
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInMemoryLedger_Transition_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	task := newTask(t, domain.TaskParse, "trial-1")
	require.NoError(t, l.Create(ctx, task))
	_, err := l.Transition(ctx, task.ID, domain.StatusInProgress, TransitionPayload{})
	require.NoError(t, err)
	_, err = l.Transition(ctx, task.ID, domain.StatusCompleted, TransitionPayload{SavePath: "/data/out"})
	require.NoError(t, err)

	_, err = l.Transition(ctx, task.ID, domain.StatusFailed, TransitionPayload{ErrorMessage: "late"})
	assert.ErrorIs(t, err, domain.ErrTaskFinalized)

	got, err := l.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "/data/out", got.SavePath)
	assert.Empty(t, got.ErrorMessage)
}

func TestInMemoryLedger_ActiveTask(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	task := newTask(t, domain.TaskQA, "trial-1")
	require.NoError(t, l.Create(ctx, task))

	active, found, err := l.ActiveTask(ctx, "trial-1", domain.TaskQA)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, task.ID, active.ID)

	// Another type does not occupy the slot.
	_, found, err = l.ActiveTask(ctx, "trial-1", domain.TaskChunk)
	require.NoError(t, err)
	assert.False(t, found)

	// Finalizing frees the slot.
	_, err = l.Transition(ctx, task.ID, domain.StatusInProgress, TransitionPayload{})
	require.NoError(t, err)
	_, err = l.Transition(ctx, task.ID, domain.StatusFailed, TransitionPayload{ErrorMessage: "oom"})
	require.NoError(t, err)

	_, found, err = l.ActiveTask(ctx, "trial-1", domain.TaskQA)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryLedger_LatestCompleted(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	first := newTask(t, domain.TaskParse, "trial-1")
	first.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	second := newTask(t, domain.TaskParse, "trial-1")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	for _, task := range []*domain.Task{first, second} {
		require.NoError(t, l.Create(ctx, task))
		_, err := l.Transition(ctx, task.ID, domain.StatusInProgress, TransitionPayload{})
		require.NoError(t, err)
	}
	_, err := l.Transition(ctx, first.ID, domain.StatusCompleted, TransitionPayload{SavePath: "/data/v1"})
	require.NoError(t, err)
	_, err = l.Transition(ctx, second.ID, domain.StatusCompleted, TransitionPayload{SavePath: "/data/v2"})
	require.NoError(t, err)

	latest, found, err := l.LatestCompleted(ctx, "trial-1", domain.TaskParse)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/data/v2", latest.SavePath)

	_, found, err = l.LatestCompleted(ctx, "trial-1", domain.TaskChunk)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryLedger_BindTrial(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	task := newTask(t, domain.TaskParse, "")
	require.NoError(t, l.Create(ctx, task))

	require.NoError(t, l.BindTrial(ctx, task.ID, "trial-1"))
	require.NoError(t, l.BindTrial(ctx, task.ID, "trial-1"), "rebinding to the same trial is a no-op")
	assert.Error(t, l.BindTrial(ctx, task.ID, "trial-2"))

	bound, err := l.ListByTrial(ctx, "trial-1")
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, task.ID, bound[0].ID)
}

func TestInMemoryLedger_List_Ordering(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	types := []domain.TaskType{domain.TaskQA, domain.TaskParse, domain.TaskChunk}
	for i, taskType := range types {
		task := newTask(t, taskType, "trial-1")
		task.CreatedAt = base.Add(time.Duration(len(types)-i) * time.Minute)
		require.NoError(t, l.Create(ctx, task))
	}

	listed, err := l.List(ctx, "proj-1", "trial-1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i := 1; i < len(listed); i++ {
		assert.False(t, listed[i].CreatedAt.Before(listed[i-1].CreatedAt))
	}
}
