// Package ledger implements the task ledger: the durable, single source of
// truth for every unit of work. All other components read the ledger and
// propose transitions through it; none mutate task records directly.
//
// Reads are snapshot-consistent: a caller never observes a task in a state
// the ledger has already moved past, and returned records are detached copies.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// TaskLedger records tasks and enforces the lifecycle state machine.
// Implementations must serialize transitions per task so that transition
// order is strict: not_started < in_progress < {completed, failed}.
type TaskLedger interface {
	// Create appends a task record in the not_started state.
	Create(ctx context.Context, task *domain.Task) error

	// Transition moves a task to target, enforcing the state machine.
	// A completed target requires payload.SavePath; a failed target
	// requires payload.ErrorMessage. Terminal tasks reject all further
	// transitions with TaskFinalizedError.
	Transition(ctx context.Context, taskID string, target domain.Status, payload TransitionPayload) (*domain.Task, error)

	// Get returns the task by id, or NotFoundError.
	Get(ctx context.Context, taskID string) (*domain.Task, error)

	// List returns tasks for a project, optionally filtered to one trial,
	// ordered by creation time.
	List(ctx context.Context, projectID, trialID string) ([]*domain.Task, error)

	// ListByTrial returns all tasks bound to a trial, ordered by creation time.
	ListByTrial(ctx context.Context, trialID string) ([]*domain.Task, error)

	// ActiveTask returns the non-terminal task occupying (trialID, taskType),
	// if any. At most one can exist; the coordinator enforces that invariant.
	ActiveTask(ctx context.Context, trialID string, taskType domain.TaskType) (*domain.Task, bool, error)

	// LatestCompleted returns the most recent completed task of the given
	// type on the trial, if any.
	LatestCompleted(ctx context.Context, trialID string, taskType domain.TaskType) (*domain.Task, bool, error)

	// BindTrial sets the trial id on a task created before its trial was
	// finalized. Rebinding an already-bound task is rejected.
	BindTrial(ctx context.Context, taskID, trialID string) error
}

// TransitionPayload carries the data a transition may attach to the task.
type TransitionPayload struct {
	// SavePath is required when the target status is completed.
	SavePath string

	// ErrorMessage is required when the target status is failed.
	ErrorMessage string
}

// InMemoryLedger is the in-process TaskLedger used by the coordinating
// process. Persistence engines are an external collaborator; embedding
// deployments swap this for a durable implementation behind the same
// interface.
type InMemoryLedger struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task

	// byTrial indexes task ids per trial for list and slot queries.
	byTrial map[string][]string

	// byProject indexes task ids per project.
	byProject map[string][]string
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		tasks:     make(map[string]*domain.Task),
		byTrial:   make(map[string][]string),
		byProject: make(map[string][]string),
	}
}

var _ TaskLedger = (*InMemoryLedger)(nil)

// Create appends a task record in the not_started state.
func (l *InMemoryLedger) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.Status != domain.StatusNotStarted {
		return &domain.InvalidTransitionError{TaskID: task.ID, From: domain.StatusNotStarted, To: task.Status}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stored := task.Clone()
	l.tasks[stored.ID] = stored
	l.byProject[stored.ProjectID] = append(l.byProject[stored.ProjectID], stored.ID)
	if stored.TrialID != "" {
		l.byTrial[stored.TrialID] = append(l.byTrial[stored.TrialID], stored.ID)
	}
	return nil
}

// Transition moves a task through the state machine under the ledger lock,
// so no reader can observe transitions out of order.
func (l *InMemoryLedger) Transition(_ context.Context, taskID string, target domain.Status, payload TransitionPayload) (*domain.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[taskID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "task", ID: taskID}
	}

	if task.Status.IsTerminal() {
		return nil, &domain.TaskFinalizedError{TaskID: taskID, Status: task.Status}
	}
	if !task.Status.CanTransition(target) {
		return nil, &domain.InvalidTransitionError{TaskID: taskID, From: task.Status, To: target}
	}

	switch target {
	case domain.StatusCompleted:
		if payload.SavePath == "" {
			return nil, domain.ErrMissingSavePath
		}
		task.SavePath = payload.SavePath
	case domain.StatusFailed:
		if payload.ErrorMessage == "" {
			return nil, domain.ErrMissingErrorMessage
		}
		task.ErrorMessage = payload.ErrorMessage
	}

	task.Status = target
	return task.Clone(), nil
}

// Get returns a detached copy of the task by id.
func (l *InMemoryLedger) Get(_ context.Context, taskID string) (*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	task, ok := l.tasks[taskID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	return task.Clone(), nil
}

// List returns tasks for a project ordered by creation time, optionally
// restricted to a single trial.
func (l *InMemoryLedger) List(_ context.Context, projectID, trialID string) ([]*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []string
	if trialID != "" {
		ids = l.byTrial[trialID]
	} else {
		ids = l.byProject[projectID]
	}

	out := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		task := l.tasks[id]
		if projectID != "" && task.ProjectID != projectID {
			continue
		}
		out = append(out, task.Clone())
	}
	sortTasks(out)
	return out, nil
}

// ListByTrial returns all tasks bound to a trial, ordered by creation time.
func (l *InMemoryLedger) ListByTrial(_ context.Context, trialID string) ([]*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byTrial[trialID]
	out := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.tasks[id].Clone())
	}
	sortTasks(out)
	return out, nil
}

// ActiveTask returns the non-terminal task occupying (trialID, taskType).
func (l *InMemoryLedger) ActiveTask(_ context.Context, trialID string, taskType domain.TaskType) (*domain.Task, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, id := range l.byTrial[trialID] {
		task := l.tasks[id]
		if task.Type == taskType && !task.Status.IsTerminal() {
			return task.Clone(), true, nil
		}
	}
	return nil, false, nil
}

// LatestCompleted returns the most recent completed task of the given type.
func (l *InMemoryLedger) LatestCompleted(_ context.Context, trialID string, taskType domain.TaskType) (*domain.Task, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var latest *domain.Task
	for _, id := range l.byTrial[trialID] {
		task := l.tasks[id]
		if task.Type != taskType || task.Status != domain.StatusCompleted {
			continue
		}
		if latest == nil || task.CreatedAt.After(latest.CreatedAt) {
			latest = task
		}
	}
	if latest == nil {
		return nil, false, nil
	}
	return latest.Clone(), true, nil
}

// BindTrial attaches a trial id to a task created before its trial existed.
func (l *InMemoryLedger) BindTrial(_ context.Context, taskID, trialID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[taskID]
	if !ok {
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	if task.TrialID == trialID {
		return nil
	}
	if task.TrialID != "" {
		return fmt.Errorf("task %s is already bound to trial %s", taskID, task.TrialID)
	}

	task.TrialID = trialID
	l.byTrial[trialID] = append(l.byTrial[trialID], taskID)
	return nil
}

// sortTasks orders tasks by creation time, oldest first, with id as a
// tiebreak so ordering is stable for tasks created in the same instant.
func sortTasks(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
