// Package events provides the generic event infrastructure for lifecycle
// event emission. It defines the Envelope type for wrapping domain events
// with consistent metadata and the EventSink interface for event
// storage/transmission.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Envelope wraps domain events with consistent metadata for reliable event
// processing. It is a generic container for any domain-specific payload
// while maintaining standard fields for routing, idempotency, and
// observability.
//
// The envelope pattern enables:
// - Schema evolution through versioning
// - Event deduplication via idempotency keys
// - Per-project event filtering
// - Cross-component event correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	// Generated as a UUID for each event emission.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "TaskStarted", "TaskCompleted".
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "coordinator", "stage-activity".
	Source string `json:"source"`

	// Version enables schema evolution and backward compatibility.
	// Start at "1.0.0" and increment following semantic versioning.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during redelivery.
	// Generated deterministically from the event's identity, never from
	// wall-clock time.
	IdempotencyKey string `json:"idempotency_key"`

	// ProjectID identifies the project for per-project filtering.
	ProjectID string `json:"project_id"`

	// TrialID identifies the trial the event concerns, when bound.
	TrialID string `json:"trial_id,omitempty"`

	// Payload contains the domain-specific event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// EventSink defines the interface for emitting events to downstream
// consumers. Implementations could include database outbox patterns, message
// queues, event streaming platforms, or simple file/log outputs.
//
// The interface is designed to be:
// - Simple to implement and test
// - Async-friendly with context support
// - Failure-tolerant (errors don't break the primary operation)
// - Extensible for different sink types.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Implementations should handle idempotency (duplicate events are
	// no-ops) and return quickly to avoid blocking the caller.
	//
	// Returns error if the event cannot be queued, but callers should
	// not fail their primary operation due to event sink failures.
	// Events matter for observability, not for correctness.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when
// events are disabled. All Append calls succeed immediately without side
// effects.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// InMemoryEventSink collects events in memory with idempotency-key
// deduplication. Suitable for tests and single-process embedding; production
// deployments should provide a durable sink.
type InMemoryEventSink struct {
	mu   sync.Mutex
	seen map[string]struct{}
	all  []Envelope
}

// NewInMemoryEventSink creates an empty in-memory sink.
func NewInMemoryEventSink() *InMemoryEventSink {
	return &InMemoryEventSink{seen: make(map[string]struct{})}
}

// Append records the envelope unless its idempotency key was seen before.
func (s *InMemoryEventSink) Append(_ context.Context, envelope Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if envelope.IdempotencyKey != "" {
		if _, dup := s.seen[envelope.IdempotencyKey]; dup {
			return nil
		}
		s.seen[envelope.IdempotencyKey] = struct{}{}
	}
	s.all = append(s.all, envelope)
	return nil
}

// Events returns a snapshot of everything recorded so far.
func (s *InMemoryEventSink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.all))
	copy(out, s.all)
	return out
}
