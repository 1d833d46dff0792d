package trial

import (
	"context"
	"sync"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// configStore keeps the append-only sequence of configuration versions per
// trial plus an index pointing at the current default. Versions are
// immutable; swapping the default flag is the only mutable pointer update
// and happens atomically under the store lock.
type configStore struct {
	mu sync.RWMutex

	// versions holds each trial's configuration history in append order.
	versions map[string][]*domain.TrialConfig

	// defaultIdx points at the current default version per trial, -1 when
	// no default exists yet.
	defaultIdx map[string]int
}

func newConfigStore() *configStore {
	return &configStore{
		versions:   make(map[string][]*domain.TrialConfig),
		defaultIdx: make(map[string]int),
	}
}

// SetConfig appends a new configuration version for the trial. Config
// mutation is append-only: earlier versions are never overwritten. When
// makeDefault is set, the default flag moves to the new version and is
// cleared from the previous holder in the same critical section.
func (m *Manager) SetConfig(ctx context.Context, projectID, trialID, name string, config domain.ConfigDocument, metadata map[string]string, makeDefault bool) (*domain.TrialConfig, error) {
	if _, err := m.Get(ctx, trialID); err != nil {
		return nil, err
	}

	tc, err := domain.NewTrialConfig(projectID, trialID, name, config, metadata)
	if err != nil {
		return nil, err
	}

	s := m.configs
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.versions[trialID]
	if makeDefault {
		if idx, ok := s.defaultIdx[trialID]; ok && idx >= 0 {
			history[idx].IsDefault = false
		}
		tc.IsDefault = true
		s.defaultIdx[trialID] = len(history)
	}
	s.versions[trialID] = append(history, tc)

	return tc.Clone(), nil
}

// GetConfig returns the trial's current default configuration version, or
// the newest version when no default has been marked. Returns NotFoundError
// when the trial has no configuration at all.
func (m *Manager) GetConfig(ctx context.Context, trialID string) (*domain.TrialConfig, error) {
	if _, err := m.Get(ctx, trialID); err != nil {
		return nil, err
	}

	s := m.configs
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.versions[trialID]
	if len(history) == 0 {
		return nil, &domain.NotFoundError{Kind: "config", ID: trialID}
	}
	if idx, ok := s.defaultIdx[trialID]; ok && idx >= 0 {
		return history[idx].Clone(), nil
	}
	return history[len(history)-1].Clone(), nil
}

// ListConfigs returns the trial's configuration history in append order.
func (m *Manager) ListConfigs(ctx context.Context, trialID string) ([]*domain.TrialConfig, error) {
	if _, err := m.Get(ctx, trialID); err != nil {
		return nil, err
	}

	s := m.configs
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.versions[trialID]
	out := make([]*domain.TrialConfig, 0, len(history))
	for _, tc := range history {
		out = append(out, tc.Clone())
	}
	return out, nil
}

// SetDefault moves the default flag to an existing configuration version.
// Exactly one version per trial holds the flag afterwards.
func (m *Manager) SetDefault(ctx context.Context, trialID, configID string) error {
	if _, err := m.Get(ctx, trialID); err != nil {
		return err
	}

	s := m.configs
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.versions[trialID]
	target := -1
	for i, tc := range history {
		if tc.ID == configID {
			target = i
			break
		}
	}
	if target < 0 {
		return &domain.NotFoundError{Kind: "config", ID: configID}
	}

	if idx, ok := s.defaultIdx[trialID]; ok && idx >= 0 {
		history[idx].IsDefault = false
	}
	history[target].IsDefault = true
	s.defaultIdx[trialID] = target
	return nil
}
