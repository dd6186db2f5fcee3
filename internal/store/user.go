package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uimarket/uimarket/types"
)

const userColumns = `id, username, email, password_hash, favorites, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var favorites pq.StringArray
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&favorites,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	ids, err := parseUUIDArray(favorites)
	if err != nil {
		return types.User{}, err
	}
	user.Favorites = ids
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByUsernameOrEmail reports whether any user already holds username
// or email, in a single query.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Favorites == nil {
		user.Favorites = []uuid.UUID{}
	}

	const query = `
		INSERT INTO users (id, username, email, password_hash, favorites, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		uuidArray(user.Favorites),
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// Update writes the profile fields of user. Favorites are left untouched;
// they change only through ToggleFavorite.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			password_hash = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// ToggleFavorite flips membership of componentID in the user's favorites
// and returns the new state. The read and the write happen in one UPDATE,
// so concurrent toggles serialise on the row lock.
func (r *UserRepository) ToggleFavorite(ctx context.Context, userID, componentID uuid.UUID) (bool, error) {
	const query = `
		UPDATE users
		SET favorites = CASE
				WHEN $2::uuid = ANY(favorites) THEN array_remove(favorites, $2::uuid)
				ELSE array_append(favorites, $2::uuid)
			END,
			updated_at = $3
		WHERE id = $1
		RETURNING $2::uuid = ANY(favorites)`
	var favorite bool
	err := r.db.QueryRowContext(ctx, query, userID, componentID, time.Now().UTC()).Scan(&favorite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return favorite, nil
}
