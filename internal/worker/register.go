// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-trialforge/internal/execution"
	"github.com/ahrav/go-trialforge/internal/workflow"
	"github.com/ahrav/go-trialforge/pkg/activity"
	"github.com/ahrav/go-trialforge/pkg/events"
)

// RegisterAll registers all workflows and activities with the Temporal worker.
// This function must be called during worker initialization before starting
// the worker. The registration is not thread-safe and should only be called once
// during application startup.
//
// The worker runs stages through the given processor and reports outcomes
// through the reporter, which applies the terminal ledger transitions.
func RegisterAll(w sdkworker.Worker, sink events.EventSink, processor execution.StageProcessor, reporter execution.Reporter) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := activity.NewBaseActivities(sink)

	stageActivities := execution.NewActivities(base, processor, reporter)

	w.RegisterWorkflow(workflow.StageWorkflow)

	w.RegisterActivity(stageActivities.ExecuteStage)
	w.RegisterActivity(stageActivities.ReportSuccess)
	w.RegisterActivity(stageActivities.ReportFailure)
}
