package store_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
)

var componentRowColumns = []string{
	"id", "name", "description", "category", "tags", "code", "author_id", "username", "created_at", "updated_at",
}

func setupComponentRepoMock(t *testing.T) (*store.ComponentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewComponentRepository(db), mock
}

func TestComponentRepository_List(t *testing.T) {
	authorID := uuid.New()
	favID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		filter    types.ComponentFilter
		mockSetup func(mock sqlmock.Sqlmock)
	}{
		{
			name:   "no filters newest first",
			filter: types.ComponentFilter{Sort: types.SortNewest},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`JOIN users u ON u.id = c.author_id ORDER BY c.created_at DESC$`).
					WithArgs().
					WillReturnRows(sqlmock.NewRows(componentRowColumns))
			},
		},
		{
			name:   "search and category by name",
			filter: types.ComponentFilter{Search: "button", Category: types.CategoryForms, Sort: types.SortName},
			mockSetup: func(mock sqlmock.Sqlmock) {
				query := regexp.QuoteMeta(`WHERE c.search @@ plainto_tsquery('simple', $1) AND c.category = $2 ORDER BY c.name COLLATE "C" ASC`)
				mock.ExpectQuery(query).
					WithArgs("button", "forms").
					WillReturnRows(sqlmock.NewRows(componentRowColumns))
			},
		},
		{
			name:   "restricted to favorites",
			filter: types.ComponentFilter{RestrictIDs: true, IDs: []uuid.UUID{favID}, Sort: types.SortPopular},
			mockSetup: func(mock sqlmock.Sqlmock) {
				query := regexp.QuoteMeta(`WHERE c.id = ANY($1::uuid[]) ORDER BY (SELECT COUNT(1) FROM users f WHERE c.id = ANY(f.favorites)) DESC`)
				mock.ExpectQuery(query).
					WithArgs(pq.StringArray{favID.String()}).
					WillReturnRows(sqlmock.NewRows(componentRowColumns).
						AddRow(favID.String(), "Btn", "A nice button component", "buttons", "{ui,button}", "<button/>", authorID.String(), "alice", now, now))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupComponentRepoMock(t)
			tt.mockSetup(mock)

			_, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestComponentRepository_ListScansRows(t *testing.T) {
	repo, mock := setupComponentRepoMock(t)
	id, authorID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM components c`).
		WillReturnRows(sqlmock.NewRows(componentRowColumns).
			AddRow(id.String(), "Btn", "A nice button component", "buttons", "{ui}", "<button/>", authorID.String(), "alice", now, now))

	items, err := repo.List(context.Background(), types.ComponentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, types.CategoryButtons, items[0].Category)
	assert.Equal(t, []string{"ui"}, items[0].Tags)
	assert.Equal(t, types.AuthorRef{ID: authorID, Username: "alice"}, items[0].Author)
	assert.Nil(t, items[0].IsFavorite)
}

func TestComponentRepository_Get(t *testing.T) {
	id := uuid.New()

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupComponentRepoMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).WithArgs(id).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty tags", func(t *testing.T) {
		repo, mock := setupComponentRepoMock(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).WithArgs(id).
			WillReturnRows(sqlmock.NewRows(componentRowColumns).
				AddRow(id.String(), "Card", "A simple card layout", "cards", "{}", "<div/>", uuid.NewString(), "bob", now, now))

		component, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []string{}, component.Tags)
	})
}

func TestComponentRepository_Create(t *testing.T) {
	authorID := uuid.New()
	query := regexp.QuoteMeta("INSERT INTO components (id, name, description, category, tags, code, author_id, created_at, updated_at)")
	input := types.Component{
		Name:        "Btn",
		Description: "A nice button component",
		Category:    types.CategoryButtons,
		Tags:        []string{"ui"},
		Code:        "<button/>",
		Author:      types.AuthorRef{ID: authorID},
	}

	t.Run("returns author username", func(t *testing.T) {
		repo, mock := setupComponentRepoMock(t)
		now := time.Now()
		mock.ExpectQuery(query).
			WithArgs(sqlmock.AnyArg(), "Btn", "A nice button component", "buttons", pq.StringArray{"ui"}, "<button/>", authorID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(componentRowColumns).
				AddRow(uuid.NewString(), "Btn", "A nice button component", "buttons", "{ui}", "<button/>", authorID.String(), "alice", now, now))

		created, err := repo.Create(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "alice", created.Author.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown author", func(t *testing.T) {
		repo, mock := setupComponentRepoMock(t)
		mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: "23503"})

		_, err := repo.Create(context.Background(), input)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
