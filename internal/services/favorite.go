package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/uimarket/uimarket/internal/apperr"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
)

// FavoriteService flips favorite membership for a caller.
type FavoriteService struct {
	components *ComponentService
	users      UserRepository
	events     EventPublisher
}

func NewFavoriteService(components *ComponentService, users UserRepository, events EventPublisher) *FavoriteService {
	return &FavoriteService{components: components, users: users, events: orNoop(events)}
}

// Toggle adds the component to the caller's favorites when absent and
// removes it when present, returning the new state. The flip itself is a
// single store operation.
func (s *FavoriteService) Toggle(ctx context.Context, caller uuid.UUID, rawComponentID string) (bool, error) {
	component, err := s.components.lookup(ctx, rawComponentID)
	if err != nil {
		return false, err
	}

	favorite, err := s.users.ToggleFavorite(ctx, caller, component.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, apperr.NotFound("user not found")
		}
		return false, apperr.Internal("failed to toggle favorite", err)
	}

	publish(ctx, s.events, types.Event{
		Type:        types.EventFavoriteToggled,
		ComponentID: component.ID,
		UserID:      caller,
		IsFavorite:  &favorite,
	})
	return favorite, nil
}
