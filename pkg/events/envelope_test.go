package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(key string) Envelope {
	return Envelope{
		ID:             "evt-" + key,
		Type:           "TaskCompleted",
		Source:         "coordinator",
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: key,
		ProjectID:      "proj-1",
		Payload:        json.RawMessage(`{}`),
	}
}

func TestInMemoryEventSink_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("records events in order", func(t *testing.T) {
		sink := NewInMemoryEventSink()
		require.NoError(t, sink.Append(ctx, envelope("a")))
		require.NoError(t, sink.Append(ctx, envelope("b")))

		got := sink.Events()
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].IdempotencyKey)
		assert.Equal(t, "b", got[1].IdempotencyKey)
	})

	t.Run("duplicate idempotency key is dropped", func(t *testing.T) {
		sink := NewInMemoryEventSink()
		require.NoError(t, sink.Append(ctx, envelope("a")))
		require.NoError(t, sink.Append(ctx, envelope("a")))

		assert.Len(t, sink.Events(), 1)
	})

	t.Run("empty key never deduplicates", func(t *testing.T) {
		sink := NewInMemoryEventSink()
		require.NoError(t, sink.Append(ctx, envelope("")))
		require.NoError(t, sink.Append(ctx, envelope("")))

		assert.Len(t, sink.Events(), 2)
	})

	t.Run("snapshot is independent of later appends", func(t *testing.T) {
		sink := NewInMemoryEventSink()
		require.NoError(t, sink.Append(ctx, envelope("a")))

		snap := sink.Events()
		require.NoError(t, sink.Append(ctx, envelope("b")))
		assert.Len(t, snap, 1)
	})
}

func TestNoOpEventSink_Append(t *testing.T) {
	sink := NewNoOpEventSink()
	assert.NoError(t, sink.Append(context.Background(), envelope("a")))
}
