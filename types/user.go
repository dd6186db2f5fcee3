package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the marketplace.
// It contains identity, credentials, and the user's favorite components.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Username is the unique public name chosen by the user (3-30 chars).
	Username string `json:"username" db:"username"`

	// Email is the user's unique, lowercased email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Favorites is the set of component IDs the user has favorited.
	// Order carries no meaning and an ID never appears twice.
	Favorites []uuid.UUID `json:"favorites" db:"favorites"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the public projection of a user returned on login.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Summary returns the login projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
