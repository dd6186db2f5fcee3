package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uimarket/uimarket/types"
)

func TestAnnotate(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	items := func() []types.Component {
		return []types.Component{{ID: a}, {ID: b}, {ID: c}}
	}

	got := Annotate(items(), NewFavoriteSet([]uuid.UUID{b, uuid.New()}))
	want := map[uuid.UUID]bool{a: false, b: true, c: false}
	for _, item := range got {
		require.NotNil(t, item.IsFavorite)
		assert.Equal(t, want[item.ID], *item.IsFavorite)
	}

	for _, item := range Annotate(items(), NewFavoriteSet(nil)) {
		require.NotNil(t, item.IsFavorite)
		assert.False(t, *item.IsFavorite)
	}

	annotated := Annotate(items(), NewFavoriteSet([]uuid.UUID{a}))
	for _, item := range Annotate(annotated, nil) {
		assert.Nil(t, item.IsFavorite)
	}
}

func TestFavoriteSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	set := NewFavoriteSet([]uuid.UUID{a, a, b})

	assert.Len(t, set, 2)
	assert.True(t, set.Contains(a))
	assert.False(t, set.Contains(uuid.New()))
	assert.ElementsMatch(t, []uuid.UUID{a, b}, set.IDs())
	assert.Empty(t, FavoriteSet(nil).IDs())
}
