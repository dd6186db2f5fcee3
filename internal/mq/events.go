package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/uimarket/uimarket/types"
)

// AttrEventType is the message attribute naming the event type.
const AttrEventType = "type"

// EventPublisher publishes domain events as JSON on one channel.
type EventPublisher struct {
	mq      *MQ
	channel string
}

func NewEventPublisher(m *MQ, channel string) (*EventPublisher, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("events channel is required")
	}
	return &EventPublisher{mq: m, channel: channel}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = p.mq.Publish(ctx, p.channel, data, map[string]string{AttrEventType: string(event.Type)})
	return err
}

// SubscribeEvents decodes every message on channel and passes it to handle.
// Messages that are not events are acknowledged and skipped through onInvalid.
func SubscribeEvents(
	ctx context.Context,
	m *MQ,
	channel string,
	handle func(ctx context.Context, event types.Event) error,
	onInvalid func(msg Message, err error),
) error {
	return m.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeEvent(msg)
		if err != nil {
			if onInvalid != nil {
				onInvalid(msg, err)
			}
			return nil
		}
		return handle(ctx, event)
	})
}

// DecodeEvent parses a message published by EventPublisher.
func DecodeEvent(msg Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		event.Type = types.EventType(msg.Attributes[AttrEventType])
	}
	if event.Type == "" {
		return types.Event{}, fmt.Errorf("event %s has no type", msg.ID)
	}
	return event, nil
}
