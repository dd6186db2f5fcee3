package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
)

func steppingClock() func() time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		base = base.Add(time.Minute)
		return base
	}
}

func seed(t *testing.T) (*Store, types.User) {
	t.Helper()
	s := New()
	s.SetClock(steppingClock())
	author, err := s.Users().Create(context.Background(), types.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	return s, author
}

func addComponent(t *testing.T, s *Store, author uuid.UUID, name, description string, category types.Category, tags ...string) types.Component {
	t.Helper()
	c, err := s.Components().Create(context.Background(), types.Component{
		Name:        name,
		Description: description,
		Category:    category,
		Tags:        tags,
		Code:        "<div/>",
		Author:      types.AuthorRef{ID: author},
	})
	require.NoError(t, err)
	return c
}

func names(items []types.Component) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestUserRepository_Duplicates(t *testing.T) {
	s, alice := seed(t)
	users := s.Users()
	ctx := context.Background()

	_, err := users.Create(ctx, types.User{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	bob, err := users.Create(ctx, types.User{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	bob.Email = alice.Email
	_, err = users.Update(ctx, bob)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	exists, err := users.ExistsByUsernameOrEmail(ctx, "nobody", "bob@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = users.Update(ctx, types.User{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserRepository_ToggleFavorite(t *testing.T) {
	s, alice := seed(t)
	users := s.Users()
	ctx := context.Background()
	componentID := uuid.New()

	on, err := users.ToggleFavorite(ctx, alice.ID, componentID)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := users.ToggleFavorite(ctx, alice.ID, componentID)
	require.NoError(t, err)
	assert.False(t, off)

	got, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Favorites)

	_, err = users.ToggleFavorite(ctx, uuid.New(), componentID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserRepository_ConcurrentToggleKeepsSet(t *testing.T) {
	s, alice := seed(t)
	users := s.Users()
	componentID := uuid.New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = users.ToggleFavorite(context.Background(), alice.ID, componentID)
		}()
	}
	wg.Wait()

	got, err := users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Favorites, "an even number of toggles leaves the set unchanged")
}

func TestComponentRepository_List(t *testing.T) {
	s, alice := seed(t)
	ctx := context.Background()
	btn := addComponent(t, s, alice.ID, "Primary Button", "A nice button component", types.CategoryButtons, "ui")
	card := addComponent(t, s, alice.ID, "Card", "A simple card layout", types.CategoryCards, "layout")
	nav := addComponent(t, s, alice.ID, "Navbar", "Top navigation with button slots", types.CategoryNavigation)

	repo := s.Components()

	items, err := repo.List(ctx, types.ComponentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Navbar", "Card", "Primary Button"}, names(items))
	assert.Equal(t, "alice", items[0].Author.Username)

	items, err = repo.List(ctx, types.ComponentFilter{Sort: types.SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Card", "Navbar", "Primary Button"}, names(items))

	items, err = repo.List(ctx, types.ComponentFilter{Search: "button"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Primary Button", "Navbar"}, names(items))

	items, err = repo.List(ctx, types.ComponentFilter{Search: "butt"})
	require.NoError(t, err)
	assert.Empty(t, items, "terms match whole tokens")

	items, err = repo.List(ctx, types.ComponentFilter{Search: "LAYOUT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Card"}, names(items))

	items, err = repo.List(ctx, types.ComponentFilter{Category: types.CategoryForms})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = repo.List(ctx, types.ComponentFilter{RestrictIDs: true})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = repo.List(ctx, types.ComponentFilter{RestrictIDs: true, IDs: []uuid.UUID{btn.ID, card.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Card", "Primary Button"}, names(items))

	bob, err := s.Users().Create(ctx, types.User{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	for _, userID := range []uuid.UUID{alice.ID, bob.ID} {
		_, err := s.Users().ToggleFavorite(ctx, userID, btn.ID)
		require.NoError(t, err)
	}
	_, err = s.Users().ToggleFavorite(ctx, bob.ID, card.ID)
	require.NoError(t, err)

	items, err = repo.List(ctx, types.ComponentFilter{Sort: types.SortPopular})
	require.NoError(t, err)
	assert.Equal(t, []string{btn.Name, card.Name, nav.Name}, names(items))
}

func TestComponentRepository_CreateUnknownAuthor(t *testing.T) {
	s := New()
	_, err := s.Components().Create(context.Background(), types.Component{Name: "x", Author: types.AuthorRef{ID: uuid.New()}})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Components().Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
