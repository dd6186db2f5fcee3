package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uimarket/uimarket/types"
)

const componentSelect = `
		SELECT c.id, c.name, c.description, c.category, c.tags, c.code, c.author_id, u.username, c.created_at, c.updated_at
		FROM components c
		JOIN users u ON u.id = c.author_id`

// ComponentRepository handles persistence for components.
type ComponentRepository struct {
	db *sql.DB
}

func NewComponentRepository(db *sql.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

func scanComponent(row rowScanner) (types.Component, error) {
	var component types.Component
	var tags pq.StringArray
	if err := row.Scan(
		&component.ID,
		&component.Name,
		&component.Description,
		&component.Category,
		&tags,
		&component.Code,
		&component.Author.ID,
		&component.Author.Username,
		&component.CreatedAt,
		&component.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Component{}, ErrNotFound
		}
		return types.Component{}, err
	}
	component.Tags = []string(tags)
	if component.Tags == nil {
		component.Tags = []string{}
	}
	return component, nil
}

// List returns the components matching filter in the requested order.
func (r *ComponentRepository) List(ctx context.Context, filter types.ComponentFilter) ([]types.Component, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	components := make([]types.Component, 0)
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		components = append(components, component)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return components, nil
}

func buildListQuery(filter types.ComponentFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	placeholder := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		conditions = append(conditions, "c.search @@ plainto_tsquery('simple', "+placeholder(filter.Search)+")")
	}
	if filter.Category != "" {
		conditions = append(conditions, "c.category = "+placeholder(string(filter.Category)))
	}
	if filter.RestrictIDs {
		conditions = append(conditions, "c.id = ANY("+placeholder(uuidArray(filter.IDs))+"::uuid[])")
	}

	var b strings.Builder
	b.WriteString(componentSelect)
	if len(conditions) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString("\n\t\tORDER BY ")
	switch filter.Sort {
	case types.SortName:
		b.WriteString(`c.name COLLATE "C" ASC, c.created_at DESC`)
	case types.SortPopular:
		b.WriteString(`(SELECT COUNT(1) FROM users f WHERE c.id = ANY(f.favorites)) DESC, c.created_at DESC`)
	default:
		b.WriteString(`c.created_at DESC`)
	}
	return b.String(), args
}

func (r *ComponentRepository) Get(ctx context.Context, id uuid.UUID) (types.Component, error) {
	const query = componentSelect + `
		WHERE c.id = $1`
	return scanComponent(r.db.QueryRowContext(ctx, query, id))
}

// Create inserts component and returns it with the author's username.
// A missing author yields ErrNotFound.
func (r *ComponentRepository) Create(ctx context.Context, component types.Component) (types.Component, error) {
	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	now := time.Now().UTC()
	component.CreatedAt = now
	component.UpdatedAt = now
	if component.Tags == nil {
		component.Tags = []string{}
	}

	const query = `
		WITH inserted AS (
			INSERT INTO components (id, name, description, category, tags, code, author_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, name, description, category, tags, code, author_id, created_at, updated_at
		)
		SELECT i.id, i.name, i.description, i.category, i.tags, i.code, i.author_id, u.username, i.created_at, i.updated_at
		FROM inserted i
		JOIN users u ON u.id = i.author_id`
	created, err := scanComponent(r.db.QueryRowContext(
		ctx,
		query,
		component.ID,
		component.Name,
		component.Description,
		string(component.Category),
		pq.StringArray(component.Tags),
		component.Code,
		component.Author.ID,
		component.CreatedAt,
		component.UpdatedAt,
	))
	if err != nil {
		if pqErrorCode(err) == pqForeignKeyViolation {
			return types.Component{}, ErrNotFound
		}
		return types.Component{}, err
	}
	return created, nil
}
