package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/uimarket/uimarket/internal/apperr"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
)

// ComponentRepository defines persistence operations for components.
type ComponentRepository interface {
	List(ctx context.Context, filter types.ComponentFilter) ([]types.Component, error)
	Get(ctx context.Context, id uuid.UUID) (types.Component, error)
	Create(ctx context.Context, component types.Component) (types.Component, error)
}

// NewComponent is the validated input of Create.
type NewComponent struct {
	Name        string
	Description string
	Category    types.Category
	Tags        []string
	Code        string
}

// ComponentService encapsulates catalog reads and uploads.
type ComponentService struct {
	repo   ComponentRepository
	users  UserRepository
	events EventPublisher
}

func NewComponentService(repo ComponentRepository, users UserRepository, events EventPublisher) *ComponentService {
	return &ComponentService{repo: repo, users: users, events: orNoop(events)}
}

// favoritesOf resolves the caller's favorites. A nil caller yields a nil set;
// a caller whose account no longer exists has an empty set.
func (s *ComponentService) favoritesOf(ctx context.Context, caller uuid.UUID) (FavoriteSet, error) {
	if caller == uuid.Nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewFavoriteSet(nil), nil
		}
		return nil, apperr.Internal("failed to load favorites", err)
	}
	return NewFavoriteSet(user.Favorites), nil
}

// List runs a catalog query on behalf of caller, which is uuid.Nil for
// anonymous requests.
func (s *ComponentService) List(ctx context.Context, q types.ComponentQuery, caller uuid.UUID) ([]types.Component, error) {
	if q.FavoritesOnly && caller == uuid.Nil {
		return nil, apperr.Unauthenticated("authentication required to list favorites")
	}

	favorites, err := s.favoritesOf(ctx, caller)
	if err != nil {
		return nil, err
	}

	filter := types.ComponentFilter{
		Search:   q.Search,
		Category: q.Category,
		Sort:     q.Sort,
	}
	if q.FavoritesOnly {
		filter.RestrictIDs = true
		filter.IDs = favorites.IDs()
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list components", err)
	}
	return Annotate(items, favorites), nil
}

// Get returns a single component. An id that is not a UUID is reported as
// not found.
func (s *ComponentService) Get(ctx context.Context, rawID string, caller uuid.UUID) (types.Component, error) {
	component, err := s.lookup(ctx, rawID)
	if err != nil {
		return types.Component{}, err
	}

	favorites, err := s.favoritesOf(ctx, caller)
	if err != nil {
		return types.Component{}, err
	}
	items := Annotate([]types.Component{component}, favorites)
	return items[0], nil
}

func (s *ComponentService) lookup(ctx context.Context, rawID string) (types.Component, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return types.Component{}, apperr.NotFound("component not found")
	}
	component, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Component{}, apperr.NotFound("component not found")
		}
		return types.Component{}, apperr.Internal("failed to load component", err)
	}
	return component, nil
}

// Create stores a component authored by author and returns it without a
// favorite annotation.
func (s *ComponentService) Create(ctx context.Context, author uuid.UUID, in NewComponent) (types.Component, error) {
	created, err := s.repo.Create(ctx, types.Component{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Tags:        cleanTags(in.Tags),
		Code:        in.Code,
		Author:      types.AuthorRef{ID: author},
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Component{}, apperr.NotFound("user not found")
		}
		return types.Component{}, apperr.Internal("failed to create component", err)
	}

	publish(ctx, s.events, types.Event{
		Type:        types.EventComponentCreated,
		ComponentID: created.ID,
		UserID:      author,
	})
	return created, nil
}

// All returns the whole catalog in name order, unannotated.
func (s *ComponentService) All(ctx context.Context) ([]types.Component, error) {
	items, err := s.repo.List(ctx, types.ComponentFilter{Sort: types.SortName})
	if err != nil {
		return nil, apperr.Internal("failed to list components", err)
	}
	return items, nil
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}
