// Package session tracks open report and chat sessions per trial. Open and
// close are idempotent toggles; the registry carries no conversational
// state, only the fact that a session surface is active for a trial.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-trialforge/internal/domain"
)

type sessionKey struct {
	trialID string
	kind    domain.SessionKind
}

// Registry holds at most one open session per (trial, kind).
// Safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	open map[sessionKey]*domain.Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{open: make(map[sessionKey]*domain.Session)}
}

// Open marks a session of the given kind open for the trial. Opening an
// already open session returns the existing session unchanged.
func (r *Registry) Open(trialID string, kind domain.SessionKind) (*domain.Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid session kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey{trialID: trialID, kind: kind}
	if existing, ok := r.open[key]; ok {
		clone := *existing
		return &clone, nil
	}

	sess := &domain.Session{TrialID: trialID, Kind: kind, OpenedAt: time.Now().UTC()}
	r.open[key] = sess
	clone := *sess
	return &clone, nil
}

// Close marks the session closed. Closing a session that is not open is a
// no-op; the registry resolves racing closes without error.
func (r *Registry) Close(trialID string, kind domain.SessionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid session kind %q", kind)
	}

	r.mu.Lock()
	delete(r.open, sessionKey{trialID: trialID, kind: kind})
	r.mu.Unlock()
	return nil
}

// IsOpen reports whether a session of the given kind is open for the trial.
func (r *Registry) IsOpen(trialID string, kind domain.SessionKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[sessionKey{trialID: trialID, kind: kind}]
	return ok
}
