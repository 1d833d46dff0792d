// Package project manages the project container: creation with unique names,
// paged listing with status filtering, and archival. Archiving hides a
// project from default listings without touching anything it owns.
package project

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-trialforge/internal/domain"
)

// Default listing parameters, matching the documented API defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListFilter narrows and pages a project listing.
type ListFilter struct {
	// Page is 1-based; values below 1 are treated as DefaultPage.
	Page int

	// Limit caps the page size; values below 1 are treated as DefaultLimit.
	Limit int

	// Status restricts the listing to one project status. Empty lists
	// active projects only; archived projects must be asked for.
	Status domain.ProjectStatus
}

// Manager owns project records.
type Manager struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project

	// names indexes project ids by name to enforce uniqueness.
	names map[string]string
}

// NewManager creates an empty project manager.
func NewManager() *Manager {
	return &Manager{
		projects: make(map[string]*domain.Project),
		names:    make(map[string]string),
	}
}

// Create registers a new active project. A duplicate name is rejected with
// ErrProjectNameTaken.
func (m *Manager) Create(_ context.Context, name, description string) (*domain.Project, error) {
	p, err := domain.NewProject(name, description)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.names[name]; taken {
		return nil, domain.ErrProjectNameTaken
	}

	stored := *p
	m.projects[p.ID] = &stored
	m.names[p.Name] = p.ID
	return p, nil
}

// Get returns the project by id, or NotFoundError.
func (m *Manager) Get(_ context.Context, projectID string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[projectID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "project", ID: projectID}
	}
	cp := *p
	return &cp, nil
}

// List returns one page of projects plus the total count matching the
// filter. Results are ordered by creation time, oldest first.
func (m *Manager) List(_ context.Context, filter ListFilter) (int, []*domain.Project, error) {
	page := filter.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := filter.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	status := filter.Status
	if status == "" {
		status = domain.ProjectActive
	}
	if !status.Valid() {
		return 0, nil, fmt.Errorf("invalid status filter %q", status)
	}

	m.mu.RLock()
	matched := make([]*domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if p.Status != status {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return total, nil, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return total, matched[start:end], nil
}

// Archive hides a project from default listings. Archiving an already
// archived project is a no-op.
func (m *Manager) Archive(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return &domain.NotFoundError{Kind: "project", ID: projectID}
	}
	p.Status = domain.ProjectArchived
	return nil
}
