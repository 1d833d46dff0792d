// Package run manages validation and evaluation runs over trials. Runs are
// projections of validate and evaluate tasks in the ledger; the manager adds
// the implicit validate-then-evaluate chaining that evaluation requests use
// when validation is not skipped.
package run

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahrav/go-trialforge/internal/coordinator"
	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/ledger"
	"github.com/ahrav/go-trialforge/internal/trial"
)

// Manager starts validation and evaluation runs and projects their state
// from the task ledger. It subscribes to the coordinator so a queued
// evaluate follows its chained validate to the correct outcome.
type Manager struct {
	ledger ledger.TaskLedger
	trials *trial.Manager
	coord  *coordinator.Coordinator
	logger *slog.Logger

	mu sync.Mutex
	// chained maps a validate task id to the evaluate task queued behind it.
	chained map[string]string
}

// NewManager creates a run manager and registers its terminal-transition
// observer with the coordinator.
func NewManager(l ledger.TaskLedger, trials *trial.Manager, coord *coordinator.Coordinator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		ledger:  l,
		trials:  trials,
		coord:   coord,
		logger:  logger,
		chained: make(map[string]string),
	}
	coord.Subscribe(m.onTerminal)
	return m
}

// StartValidate starts a validation run against the trial's current system
// under the given configuration. qaPath and corpusPath supply external
// artifacts for trials that have no completed qa stage; a completed qa
// artifact on the trial takes precedence over them.
func (m *Manager) StartValidate(ctx context.Context, trialID, name string, config domain.ConfigDocument, qaPath, corpusPath string) (*domain.Run, error) {
	t, err := m.trials.Get(ctx, trialID)
	if err != nil {
		return nil, err
	}

	task, err := m.coord.Start(ctx, coordinator.StartInput{
		Type:   domain.TaskValidate,
		Trial:  t,
		Name:   name,
		Config: config,
		Inputs: domain.JobInputs{QAPath: qaPath, CorpusPath: corpusPath},
	})
	if err != nil {
		return nil, err
	}
	r, _ := domain.ProjectRun(task)
	return r, nil
}

// StartEvaluate starts an evaluation run. When skipValidation is false and
// no completed validation exists for this exact configuration, a validation
// run is started first and the evaluation is queued behind it: it activates
// when the validation completes and is abandoned when it fails. qaPath and
// corpusPath supply external artifacts for trials that have no completed qa
// stage. The returned run reflects the evaluation task, which may still be
// queued.
func (m *Manager) StartEvaluate(ctx context.Context, trialID, name string, config domain.ConfigDocument, qaPath, corpusPath string, skipValidation bool) (*domain.Run, error) {
	t, err := m.trials.Get(ctx, trialID)
	if err != nil {
		return nil, err
	}

	inputs := domain.JobInputs{QAPath: qaPath, CorpusPath: corpusPath}
	input := coordinator.StartInput{
		Type:   domain.TaskEvaluate,
		Trial:  t,
		Name:   name,
		Config: config,
		Inputs: inputs,
	}

	if skipValidation || m.hasFreshValidation(ctx, trialID, config) {
		task, err := m.coord.Start(ctx, input)
		if err != nil {
			return nil, err
		}
		r, _ := domain.ProjectRun(task)
		return r, nil
	}

	// Queue both tasks and register the chain before anything dispatches.
	// A validation that reaches a terminal state during its own activation
	// must already find the evaluate it releases.
	evalTask, err := m.coord.Enqueue(ctx, input)
	if err != nil {
		return nil, err
	}

	validateTask, err := m.coord.Enqueue(ctx, coordinator.StartInput{
		Type:   domain.TaskValidate,
		Trial:  t,
		Name:   name,
		Config: config,
		Inputs: inputs,
	})
	if err != nil {
		m.abandonQueued(ctx, evalTask.ID, "validation could not start: "+err.Error())
		return nil, err
	}

	m.mu.Lock()
	m.chained[validateTask.ID] = evalTask.ID
	m.mu.Unlock()

	m.logger.Info("evaluation queued behind validation",
		"trial_id", trialID,
		"validate_task_id", validateTask.ID,
		"evaluate_task_id", evalTask.ID)

	if _, err := m.coord.Activate(ctx, validateTask.ID); err != nil {
		// A recorded dispatch failure finalizes the validation, in which
		// case the observer has already resolved the chain. Any earlier
		// failure leaves the entry behind; clear it and release the
		// evaluate here.
		m.mu.Lock()
		_, pending := m.chained[validateTask.ID]
		delete(m.chained, validateTask.ID)
		m.mu.Unlock()
		if pending {
			m.abandonQueued(ctx, evalTask.ID, "validation could not start: "+err.Error())
		}
		return nil, err
	}

	r, _ := domain.ProjectRun(evalTask)
	return r, nil
}

// abandonQueued fails a queued evaluation that lost its validation.
func (m *Manager) abandonQueued(ctx context.Context, taskID, reason string) {
	if err := m.coord.Abandon(ctx, taskID, reason); err != nil {
		m.logger.Error("failed to abandon queued evaluation",
			"task_id", taskID, "error", err)
	}
}

// GetRun returns the run projection for a validate or evaluate task.
func (m *Manager) GetRun(ctx context.Context, taskID string) (*domain.Run, error) {
	task, err := m.ledger.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	r, ok := domain.ProjectRun(task)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "run", ID: taskID}
	}
	return r, nil
}

// ListRuns returns run projections for every validate and evaluate task of
// the trial, oldest first.
func (m *Manager) ListRuns(ctx context.Context, trialID string) ([]*domain.Run, error) {
	tasks, err := m.ledger.ListByTrial(ctx, trialID)
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, 0, len(tasks))
	for _, task := range tasks {
		if r, ok := domain.ProjectRun(task); ok {
			runs = append(runs, r)
		}
	}
	return runs, nil
}

// hasFreshValidation reports whether a completed validation exists whose
// configuration matches the given one. A validation of a different
// configuration says nothing about this one and does not count.
func (m *Manager) hasFreshValidation(ctx context.Context, trialID string, config domain.ConfigDocument) bool {
	latest, found, err := m.ledger.LatestCompleted(ctx, trialID, domain.TaskValidate)
	if err != nil || !found {
		return false
	}
	return latest.ConfigYAML.Hash() == config.Hash()
}

// onTerminal reacts to validate outcomes for chained evaluations. It runs
// outside any trial lock, so Activate and Abandon are safe to call inline.
func (m *Manager) onTerminal(task *domain.Task) {
	if task.Type != domain.TaskValidate {
		return
	}

	m.mu.Lock()
	evalID, ok := m.chained[task.ID]
	delete(m.chained, task.ID)
	m.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	switch task.Status {
	case domain.StatusCompleted:
		if _, err := m.coord.Activate(ctx, evalID); err != nil {
			m.logger.Error("failed to activate chained evaluation",
				"validate_task_id", task.ID, "evaluate_task_id", evalID, "error", err)
		}
	case domain.StatusFailed:
		if err := m.coord.Abandon(ctx, evalID, "validation failed: "+task.ErrorMessage); err != nil {
			m.logger.Error("failed to abandon chained evaluation",
				"validate_task_id", task.ID, "evaluate_task_id", evalID, "error", err)
		}
	}
}
