// Package trial implements the trial aggregate: creation, cloning, derived
// status, and append-only configuration versioning. A trial's status is a
// pure function of its task records, recomputed from the ledger on every
// read, so it can never drift from the source of truth.
package trial

import (
	"context"
	"sort"
	"sync"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/internal/ledger"
)

// Manager owns trial records and their configuration versions.
type Manager struct {
	ledger ledger.TaskLedger

	mu     sync.RWMutex
	trials map[string]*domain.Trial

	// byProject indexes trial ids per project for listings.
	byProject map[string][]string

	configs *configStore
}

// NewManager creates a trial manager reading task state from the ledger.
func NewManager(l ledger.TaskLedger) *Manager {
	return &Manager{
		ledger:    l,
		trials:    make(map[string]*domain.Trial),
		byProject: make(map[string][]string),
		configs:   newConfigStore(),
	}
}

// Create registers a new trial in the given project.
func (m *Manager) Create(_ context.Context, projectID, name string, config domain.ConfigDocument) (*domain.Trial, error) {
	t, err := domain.NewTrial(projectID, name, config)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.trials[t.ID] = t.Clone()
	m.byProject[projectID] = append(m.byProject[projectID], t.ID)
	m.mu.Unlock()

	return t, nil
}

// Clone seeds a new trial from externally supplied artifacts. The clone's
// preparation reference stays empty and its run stages are immediately
// eligible: the supplied qa/corpus paths stand in for a completed
// preparation chain.
func (m *Manager) Clone(ctx context.Context, source *domain.Trial, config domain.ConfigDocument, qaPath, corpusPath string) (*domain.Trial, error) {
	t, err := domain.NewTrial(source.ProjectID, source.Name+"-clone", config)
	if err != nil {
		return nil, err
	}
	t.QAPath = qaPath
	t.CorpusPath = corpusPath

	m.mu.Lock()
	m.trials[t.ID] = t.Clone()
	m.byProject[t.ProjectID] = append(m.byProject[t.ProjectID], t.ID)
	m.mu.Unlock()

	// The clone's config becomes its first default version.
	if len(config) > 0 {
		if _, err := m.SetConfig(ctx, t.ProjectID, t.ID, "clone", config, nil, true); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Get returns the trial by id with its status derived from the ledger,
// or NotFoundError.
func (m *Manager) Get(ctx context.Context, trialID string) (*domain.Trial, error) {
	m.mu.RLock()
	t, ok := m.trials[trialID]
	if !ok {
		m.mu.RUnlock()
		return nil, &domain.NotFoundError{Kind: "trial", ID: trialID}
	}
	cp := t.Clone()
	m.mu.RUnlock()

	tasks, err := m.ledger.ListByTrial(ctx, trialID)
	if err != nil {
		return nil, err
	}
	cp.Status = domain.DeriveTrialStatus(tasks)
	return cp, nil
}

// List returns one page of a project's trials plus the total count,
// ordered by creation time. Each returned trial carries its derived status.
func (m *Manager) List(ctx context.Context, projectID string, page, limit int) (int, []*domain.Trial, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	m.mu.RLock()
	ids := m.byProject[projectID]
	all := make([]*domain.Trial, 0, len(ids))
	for _, id := range ids {
		all = append(all, m.trials[id].Clone())
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return total, nil, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	window := all[start:end]
	for _, t := range window {
		tasks, err := m.ledger.ListByTrial(ctx, t.ID)
		if err != nil {
			return 0, nil, err
		}
		t.Status = domain.DeriveTrialStatus(tasks)
	}
	return total, window, nil
}

// Status derives the trial's current status from its task records.
func (m *Manager) Status(ctx context.Context, trialID string) (domain.Status, error) {
	t, err := m.Get(ctx, trialID)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// SetPreparation records the first parse task of the trial's chain and
// binds the task to the trial in the ledger. The reference is an audit
// pointer: once set it never changes.
func (m *Manager) SetPreparation(ctx context.Context, trialID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trials[trialID]
	if !ok {
		return &domain.NotFoundError{Kind: "trial", ID: trialID}
	}
	if err := m.ledger.BindTrial(ctx, taskID, trialID); err != nil {
		return err
	}
	if t.PreparationID == "" {
		t.PreparationID = taskID
	}
	return nil
}
