// Package worker provides initialization and setup utilities for Temporal workers.
// This package contains initialization logic that should be executed during
// worker startup, keeping activity packages focused on pure activity logic.
package worker

import (
	"context"
	"path/filepath"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/execution"
	"github.com/ahrav/go-trialforge/pkg/events"
)

// InitializeEventSink creates the event sink used by worker activities.
// Returns an in-memory sink for development/testing.
// Production deployments should provide a durable sink (outbox, stream, etc.)
func InitializeEventSink() events.EventSink {
	return events.NewInMemoryEventSink()
}

// InitializeStageProcessor creates a development stand-in processor that
// derives deterministic artifact locations under baseDir without running any
// pipeline machinery. Production deployments plug in the real stage
// implementations instead.
func InitializeStageProcessor(baseDir string) execution.StageProcessor {
	return execution.ProcessorFunc(func(_ context.Context, req domain.JobRequest) (domain.JobResult, error) {
		savePath := filepath.Join(baseDir, req.ProjectID, req.TrialID, string(req.Type), req.TaskID)
		return domain.JobResult{SavePath: savePath}, nil
	})
}
