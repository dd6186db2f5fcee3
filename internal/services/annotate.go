package services

import (
	"github.com/google/uuid"
	"github.com/uimarket/uimarket/types"
)

// FavoriteSet is a caller's favorites as a membership set. A nil set stands
// for an anonymous caller.
type FavoriteSet map[uuid.UUID]struct{}

// NewFavoriteSet builds a non-nil set from ids.
func NewFavoriteSet(ids []uuid.UUID) FavoriteSet {
	set := make(FavoriteSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s FavoriteSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in no particular order.
func (s FavoriteSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Annotate sets IsFavorite on every item from favorites. For a nil set the
// field is cleared so it is omitted from responses.
func Annotate(items []types.Component, favorites FavoriteSet) []types.Component {
	for i := range items {
		if favorites == nil {
			items[i].IsFavorite = nil
			continue
		}
		favorite := favorites.Contains(items[i].ID)
		items[i].IsFavorite = &favorite
	}
	return items
}
