package types

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event published on the events channel.
type EventType string

const (
	EventComponentCreated EventType = "component.created"
	EventFavoriteToggled  EventType = "favorite.toggled"
)

// Event is a domain event emitted after a successful mutation.
type Event struct {
	Type        EventType `json:"type"`
	ComponentID uuid.UUID `json:"component_id"`
	UserID      uuid.UUID `json:"user_id"`
	// IsFavorite is set for favorite.toggled only.
	IsFavorite *bool     `json:"is_favorite,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
