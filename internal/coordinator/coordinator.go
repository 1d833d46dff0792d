// Package coordinator implements the async execution coordinator: it accepts
// validated start requests, enforces the one non-terminal task per
// (trial, type) invariant, records the task in the ledger, hands the job to
// an external runner, and applies the terminal transition when the runner
// reports back. The coordinator performs no retries itself; every task is an
// immutable attempt record and retry is a fresh start call by the client.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/ledger"
	"github.com/ahrav/go-trialforge/internal/stage"
	"github.com/ahrav/go-trialforge/pkg/events"
)

// JobRunner launches the external processing job for a started task.
// Dispatch must return as soon as the job is handed off; completion is
// reported out-of-band through the coordinator's OnSuccess/OnFailure
// callbacks, keyed by task id. The runner is the only writer of
// terminal-state transitions.
type JobRunner interface {
	Dispatch(ctx context.Context, req domain.JobRequest) error
}

// Observer is notified after a task reaches a terminal state. Observers run
// outside the trial lock and must not block; the run manager uses one to
// chain a deferred evaluate behind its validate.
type Observer func(task *domain.Task)

// StartInput is a validated request to start a stage on a trial.
type StartInput struct {
	// Type is the stage to start.
	Type domain.TaskType

	// Trial is the resolved trial aggregate the stage runs against.
	Trial *domain.Trial

	// Name labels the task.
	Name string

	// Config is the stage configuration document.
	Config domain.ConfigDocument

	// Inputs carries stage input locations; the coordinator fills in
	// prerequisite save paths and clone artifacts it resolves itself.
	Inputs domain.JobInputs
}

// Coordinator serializes per-trial state transitions and drives the task
// lifecycle. Work across different trials runs fully in parallel.
type Coordinator struct {
	ledger   ledger.TaskLedger
	resolver *stage.Resolver
	runner   JobRunner
	emitter  *eventEmitter
	metrics  *Metrics
	logger   *slog.Logger
	locks    *trialLocks

	obsMu     sync.RWMutex
	observers []Observer

	// pendingMu guards inputs resolved at enqueue time for tasks awaiting
	// activation, keyed by task id.
	pendingMu     sync.Mutex
	pendingInputs map[string]domain.JobInputs
}

// New creates a coordinator. Metrics may be nil; sink may be nil to disable
// event emission; logger may be nil for a default logger.
func New(l ledger.TaskLedger, resolver *stage.Resolver, runner JobRunner, sink events.EventSink, metrics *Metrics, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		ledger:        l,
		resolver:      resolver,
		runner:        runner,
		emitter:       newEventEmitter(sink, logger),
		metrics:       metrics,
		logger:        logger,
		locks:         newTrialLocks(),
		pendingInputs: make(map[string]domain.JobInputs),
	}
}

// Subscribe registers an observer for terminal task transitions.
// Not safe to call concurrently with itself; register during wiring.
func (c *Coordinator) Subscribe(obs Observer) {
	c.obsMu.Lock()
	c.observers = append(c.observers, obs)
	c.obsMu.Unlock()
}

// Start validates the stage dependency, claims the (trial, type) slot,
// records the task, moves it to in_progress, and dispatches the external
// job. It returns the in_progress task immediately; the caller polls the
// ledger for completion. A occupied slot yields ConflictError; an unmet
// dependency yields UnmetDependencyError.
func (c *Coordinator) Start(ctx context.Context, in StartInput) (*domain.Task, error) {
	task, err := c.admit(ctx, &in)
	if err != nil {
		return nil, err
	}
	return c.activate(ctx, task, in)
}

// Enqueue claims the slot and records the task but leaves it not_started.
// The run manager uses this to hold an evaluate behind its chained validate;
// Activate dispatches it later. Dependency and conflict checks match Start.
func (c *Coordinator) Enqueue(ctx context.Context, in StartInput) (*domain.Task, error) {
	task, err := c.admit(ctx, &in)
	if err != nil {
		return nil, err
	}

	// Keep the resolved inputs so Activate can dispatch without re-running
	// the resolver against a trial aggregate it no longer has.
	c.pendingMu.Lock()
	c.pendingInputs[task.ID] = in.Inputs
	c.pendingMu.Unlock()

	return task, nil
}

// Activate moves a previously enqueued task to in_progress and dispatches it
// with the inputs resolved at enqueue time.
func (c *Coordinator) Activate(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := c.ledger.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	c.pendingMu.Lock()
	inputs := c.pendingInputs[taskID]
	delete(c.pendingInputs, taskID)
	c.pendingMu.Unlock()

	return c.activate(ctx, task, StartInput{Type: task.Type, Name: task.Name, Config: task.ConfigYAML, Inputs: inputs})
}

// Abandon finalizes an enqueued task that can never run, recording the
// reason. The lifecycle has no direct not_started → failed edge, so the task
// passes through in_progress; both transitions are emitted.
func (c *Coordinator) Abandon(ctx context.Context, taskID, reason string) error {
	task, err := c.ledger.Get(ctx, taskID)
	if err != nil {
		return err
	}

	c.pendingMu.Lock()
	delete(c.pendingInputs, taskID)
	c.pendingMu.Unlock()

	unlock := c.locks.Lock(task.TrialID)
	started, err := c.ledger.Transition(ctx, taskID, domain.StatusInProgress, ledger.TransitionPayload{})
	if err != nil {
		unlock()
		return err
	}
	c.metrics.started(string(task.Type))
	c.emitter.emitTransition(ctx, started)

	failed, err := c.ledger.Transition(ctx, taskID, domain.StatusFailed, ledger.TransitionPayload{ErrorMessage: reason})
	unlock()
	if err != nil {
		return err
	}
	c.metrics.failed(string(task.Type))
	c.emitter.emitTransition(ctx, failed)
	c.notify(failed)
	return nil
}

// OnSuccess records the external job's success, moving the task to
// completed with its save path. Called exactly once per job by the runner.
func (c *Coordinator) OnSuccess(ctx context.Context, taskID, savePath string) error {
	return c.finalize(ctx, taskID, domain.StatusCompleted, ledger.TransitionPayload{SavePath: savePath})
}

// OnFailure records the external job's failure with its reason.
func (c *Coordinator) OnFailure(ctx context.Context, taskID, errorMessage string) error {
	return c.finalize(ctx, taskID, domain.StatusFailed, ledger.TransitionPayload{ErrorMessage: errorMessage})
}

// admit performs the dependency check and slot claim under the trial lock
// and appends the not_started task record.
func (c *Coordinator) admit(ctx context.Context, in *StartInput) (*domain.Task, error) {
	trial := in.Trial

	unlock := c.locks.Lock(trial.ID)
	defer unlock()

	evidence, err := c.resolver.CanStart(ctx, trial, in.Type, in.Inputs)
	if err != nil {
		return nil, err
	}

	if running, found, err := c.ledger.ActiveTask(ctx, trial.ID, in.Type); err != nil {
		return nil, err
	} else if found {
		c.metrics.conflict(string(in.Type))
		return nil, &domain.ConflictError{TrialID: trial.ID, Type: in.Type, RunningTaskID: running.ID}
	}

	// Resolve input locations from the dependency evidence.
	if evidence.CompletedTask != nil && in.Inputs.SourcePath == "" {
		in.Inputs.SourcePath = evidence.CompletedTask.SavePath
	}
	if evidence.External {
		if in.Inputs.QAPath == "" {
			in.Inputs.QAPath = trial.QAPath
		}
		if in.Inputs.CorpusPath == "" {
			in.Inputs.CorpusPath = trial.CorpusPath
		}
	}

	task, err := domain.NewTask(in.Type, trial.ProjectID, trial.ID, in.Name, in.Config)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.Create(ctx, task); err != nil {
		return nil, err
	}

	c.emitter.emitCreated(ctx, task)
	return task, nil
}

// activate moves the task to in_progress and hands the job to the runner.
// A dispatch failure finalizes the task as failed so the slot is released
// and the attempt is recorded.
func (c *Coordinator) activate(ctx context.Context, task *domain.Task, in StartInput) (*domain.Task, error) {
	unlock := c.locks.Lock(task.TrialID)

	started, err := c.ledger.Transition(ctx, task.ID, domain.StatusInProgress, ledger.TransitionPayload{})
	if err != nil {
		unlock()
		return nil, err
	}
	c.metrics.started(string(task.Type))
	c.emitter.emitTransition(ctx, started)
	unlock()

	req := domain.JobRequest{
		TaskID:     task.ID,
		ProjectID:  task.ProjectID,
		TrialID:    task.TrialID,
		Type:       task.Type,
		ConfigYAML: in.Config.Clone(),
		Inputs:     in.Inputs,
	}

	if err := c.runner.Dispatch(ctx, req); err != nil {
		c.logger.Error("job dispatch failed",
			"task_id", task.ID,
			"type", task.Type,
			"trial_id", task.TrialID,
			"error", err)
		if ferr := c.OnFailure(ctx, task.ID, "dispatch failed: "+err.Error()); ferr != nil {
			c.logger.Error("failed to record dispatch failure", "task_id", task.ID, "error", ferr)
		}
		return nil, err
	}

	c.logger.Info("stage dispatched",
		"task_id", task.ID,
		"type", task.Type,
		"trial_id", task.TrialID)
	return started, nil
}

// finalize applies a terminal transition under the trial lock and notifies
// observers once the lock is released.
func (c *Coordinator) finalize(ctx context.Context, taskID string, target domain.Status, payload ledger.TransitionPayload) error {
	task, err := c.ledger.Get(ctx, taskID)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(task.TrialID)
	final, err := c.ledger.Transition(ctx, taskID, target, payload)
	unlock()
	if err != nil {
		return err
	}

	// A terminal task never activates; drop any inputs still held for it so
	// the pending map only ever covers not_started tasks.
	c.pendingMu.Lock()
	delete(c.pendingInputs, taskID)
	c.pendingMu.Unlock()

	switch target {
	case domain.StatusCompleted:
		c.metrics.completed(string(final.Type))
	case domain.StatusFailed:
		c.metrics.failed(string(final.Type))
	}
	c.emitter.emitTransition(ctx, final)

	c.logger.Info("task finalized",
		"task_id", final.ID,
		"type", final.Type,
		"trial_id", final.TrialID,
		"status", final.Status)

	c.notify(final)
	return nil
}

// notify delivers a terminal task to all observers outside the trial lock.
func (c *Coordinator) notify(task *domain.Task) {
	c.obsMu.RLock()
	observers := c.observers
	c.obsMu.RUnlock()

	for _, obs := range observers {
		obs(task.Clone())
	}
}
