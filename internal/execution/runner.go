// Package execution bridges the coordinator to the processes that actually
// run stages. A StageProcessor does the work of a single stage; a Reporter
// receives the outcome. The package ships a LocalRunner for in-process
// execution and Temporal activities for durable execution behind a worker.
package execution

import (
	"context"
	"log/slog"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// StageProcessor executes one stage of a trial pipeline and returns the
// location of its output. Implementations wrap the actual RAG machinery
// (parsers, chunkers, QA generators, evaluators); this package only cares
// that they honor the context and report a save path on success.
type StageProcessor interface {
	Process(ctx context.Context, req domain.JobRequest) (domain.JobResult, error)
}

// ProcessorFunc adapts a function to the StageProcessor interface.
type ProcessorFunc func(ctx context.Context, req domain.JobRequest) (domain.JobResult, error)

// Process implements StageProcessor.
func (f ProcessorFunc) Process(ctx context.Context, req domain.JobRequest) (domain.JobResult, error) {
	return f(ctx, req)
}

// Reporter receives the terminal outcome of a dispatched job, keyed by task
// id. The coordinator satisfies this interface.
type Reporter interface {
	OnSuccess(ctx context.Context, taskID, savePath string) error
	OnFailure(ctx context.Context, taskID, errorMessage string) error
}

// LocalRunner executes stages on in-process goroutines. Dispatch returns as
// soon as the goroutine is launched; the outcome flows back through the
// reporter. Suitable for tests and single-node deployments; production
// deployments run stages through Temporal instead.
type LocalRunner struct {
	processor StageProcessor
	reporter  Reporter
	logger    *slog.Logger
}

// NewLocalRunner creates a runner that executes stages with the given
// processor and reports outcomes to the reporter.
func NewLocalRunner(processor StageProcessor, reporter Reporter, logger *slog.Logger) *LocalRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalRunner{processor: processor, reporter: reporter, logger: logger}
}

// Dispatch launches the stage on a new goroutine and returns immediately.
// The job runs with a background context so it survives the caller's
// request scope.
func (r *LocalRunner) Dispatch(_ context.Context, req domain.JobRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	go func() {
		ctx := context.Background()
		result, err := r.processor.Process(ctx, req)
		if err != nil {
			if rerr := r.reporter.OnFailure(ctx, req.TaskID, err.Error()); rerr != nil {
				r.logger.Error("failed to report stage failure",
					"task_id", req.TaskID, "error", rerr)
			}
			return
		}
		if rerr := r.reporter.OnSuccess(ctx, req.TaskID, result.SavePath); rerr != nil {
			r.logger.Error("failed to report stage success",
				"task_id", req.TaskID, "error", rerr)
		}
	}()

	return nil
}
