package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// recordingReporter captures terminal outcomes and signals when one lands.
type recordingReporter struct {
	mu        sync.Mutex
	successes map[string]string
	failures  map[string]string
	done      chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		successes: make(map[string]string),
		failures:  make(map[string]string),
		done:      make(chan struct{}, 1),
	}
}

func (r *recordingReporter) OnSuccess(_ context.Context, taskID, savePath string) error {
	r.mu.Lock()
	r.successes[taskID] = savePath
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingReporter) OnFailure(_ context.Context, taskID, errorMessage string) error {
	r.mu.Lock()
	r.failures[taskID] = errorMessage
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingReporter) wait(t *testing.T) {
	t.Helper()

	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the reporter")
	}
}

func validRequest() domain.JobRequest {
	return domain.JobRequest{
		TaskID:    "123e4567-e89b-12d3-a456-426614174000",
		ProjectID: "proj-1",
		TrialID:   "trial-1",
		Type:      domain.TaskParse,
		Inputs:    domain.JobInputs{GlobPath: "*.pdf"},
	}
}

func TestLocalRunner_Success(t *testing.T) {
	reporter := newRecordingReporter()
	processor := ProcessorFunc(func(_ context.Context, req domain.JobRequest) (domain.JobResult, error) {
		return domain.JobResult{SavePath: "/data/" + string(req.Type)}, nil
	})
	runner := NewLocalRunner(processor, reporter, nil)

	req := validRequest()
	require.NoError(t, runner.Dispatch(context.Background(), req))
	reporter.wait(t)

	assert.Equal(t, "/data/parse", reporter.successes[req.TaskID])
	assert.Empty(t, reporter.failures)
}

func TestLocalRunner_Failure(t *testing.T) {
	reporter := newRecordingReporter()
	processor := ProcessorFunc(func(_ context.Context, _ domain.JobRequest) (domain.JobResult, error) {
		return domain.JobResult{}, errors.New("parser crashed")
	})
	runner := NewLocalRunner(processor, reporter, nil)

	req := validRequest()
	require.NoError(t, runner.Dispatch(context.Background(), req))
	reporter.wait(t)

	assert.Equal(t, "parser crashed", reporter.failures[req.TaskID])
	assert.Empty(t, reporter.successes)
}

func TestLocalRunner_RejectsInvalidRequest(t *testing.T) {
	reporter := newRecordingReporter()
	processor := ProcessorFunc(func(_ context.Context, _ domain.JobRequest) (domain.JobResult, error) {
		t.Fatal("processor must not run for invalid requests")
		return domain.JobResult{}, nil
	})
	runner := NewLocalRunner(processor, reporter, nil)

	err := runner.Dispatch(context.Background(), domain.JobRequest{})
	require.Error(t, err)
}

func TestLocalRunner_DispatchDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	reporter := newRecordingReporter()
	processor := ProcessorFunc(func(_ context.Context, _ domain.JobRequest) (domain.JobResult, error) {
		<-release
		return domain.JobResult{SavePath: "/data/out"}, nil
	})
	runner := NewLocalRunner(processor, reporter, nil)

	done := make(chan error, 1)
	go func() { done <- runner.Dispatch(context.Background(), validRequest()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on the processor")
	}

	close(release)
	reporter.wait(t)
}
