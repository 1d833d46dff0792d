package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-trialforge/internal/domain"
	"github.com/ahrav/go-trialforge/pkg/events"
)

const (
	eventSource  = "coordinator"
	eventVersion = "1.0.0"
)

// eventEmitter wraps an EventSink with payload marshaling and best-effort
// semantics. Emission failures are logged and never surface to the caller;
// events serve observability, not correctness.
type eventEmitter struct {
	sink   events.EventSink
	logger *slog.Logger
}

func newEventEmitter(sink events.EventSink, logger *slog.Logger) *eventEmitter {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	return &eventEmitter{sink: sink, logger: logger}
}

// emitCreated announces a task record entering the ledger.
func (e *eventEmitter) emitCreated(ctx context.Context, task *domain.Task) {
	e.emit(ctx, domain.EventTaskCreated, task)
}

// emitTransition announces a status transition; not_started is announced by
// emitCreated and produces no event here.
func (e *eventEmitter) emitTransition(ctx context.Context, task *domain.Task) {
	eventType, ok := domain.EventForStatus(task.Status)
	if !ok {
		return
	}
	e.emit(ctx, eventType, task)
}

func (e *eventEmitter) emit(ctx context.Context, eventType domain.EventType, task *domain.Task) {
	payload := domain.TaskEventPayload{
		TaskID:       task.ID,
		ProjectID:    task.ProjectID,
		TrialID:      task.TrialID,
		TaskType:     task.Type,
		Status:       task.Status,
		SavePath:     task.SavePath,
		ErrorMessage: task.ErrorMessage,
		OccurredAt:   time.Now().UTC(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("failed to marshal task event payload",
			"task_id", task.ID, "event_type", eventType, "error", err)
		return
	}

	envelope := events.Envelope{
		ID:             uuid.New().String(),
		Type:           string(eventType),
		Source:         eventSource,
		Version:        eventVersion,
		Timestamp:      payload.OccurredAt,
		IdempotencyKey: domain.TaskEventIdempotencyKey(task.ID, task.Status),
		ProjectID:      task.ProjectID,
		TrialID:        task.TrialID,
		Payload:        raw,
	}

	if err := e.sink.Append(ctx, envelope); err != nil {
		e.logger.Error("failed to append task event",
			"task_id", task.ID, "event_type", eventType, "error", err)
	}
}
