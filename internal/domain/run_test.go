package domain //nolint:testpackage // Need access to unexported validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRun(t *testing.T) {
	task, err := NewTask(TaskValidate, "proj-1", "trial-1", "", nil)
	require.NoError(t, err)

	run, ok := ProjectRun(task)
	require.True(t, ok)
	assert.Equal(t, task.ID, run.ID)
	assert.Equal(t, RunValidation, run.Type)
	assert.Equal(t, StatusNotStarted, run.Status)
	assert.Nil(t, run.Result)

	task.Status = StatusCompleted
	task.SavePath = "/data/validation"
	run, ok = ProjectRun(task)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"save_path": "/data/validation"}, run.Result)

	task.Status = StatusFailed
	task.ErrorMessage = "bad config"
	run, ok = ProjectRun(task)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"error_message": "bad config"}, run.Result)
}

func TestProjectRun_PreparationTasksHaveNoRun(t *testing.T) {
	task, err := NewTask(TaskChunk, "proj-1", "trial-1", "", nil)
	require.NoError(t, err)

	_, ok := ProjectRun(task)
	assert.False(t, ok)
}

func TestRunTypeForTask(t *testing.T) {
	rt, ok := RunTypeForTask(TaskEvaluate)
	require.True(t, ok)
	assert.Equal(t, RunEval, rt)

	_, ok = RunTypeForTask(TaskParse)
	assert.False(t, ok)
}
