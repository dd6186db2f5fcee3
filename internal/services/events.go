package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/uimarket/uimarket/types"
)

// EventPublisher delivers domain events after a successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, types.Event) error { return nil }

func orNoop(events EventPublisher) EventPublisher {
	if events == nil {
		return NoopPublisher{}
	}
	return events
}

// publish logs and drops delivery failures.
func publish(ctx context.Context, events EventPublisher, event types.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event",
			"type", event.Type,
			"component_id", event.ComponentID,
			"err", err,
		)
	}
}
