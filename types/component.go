package types

import (
	"time"

	"github.com/google/uuid"
)

// Category is the fixed classification of a component.
type Category string

const (
	CategoryButtons    Category = "buttons"
	CategoryCards      Category = "cards"
	CategoryForms      Category = "forms"
	CategoryNavigation Category = "navigation"
	CategoryOther      Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryButtons,
	CategoryCards,
	CategoryForms,
	CategoryNavigation,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, category := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Component represents a reusable UI snippet published to the marketplace.
// Components are immutable once created.
type Component struct {
	// ID is the unique identifier of the component.
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the human-readable name of the component (3-100 chars).
	Name string `json:"name" db:"name"`

	// Description explains what the component is for (10-500 chars).
	Description string `json:"description" db:"description"`

	// Category is one of the fixed categories.
	Category Category `json:"category" db:"category"`

	// Tags are free-form labels used for search.
	Tags []string `json:"tags" db:"tags"`

	// Code is the snippet payload inserted into the user's document.
	// It is treated as opaque text.
	Code string `json:"code" db:"code"`

	// Author references the user who uploaded the component. Only ID is
	// stored; Username is joined at read time.
	Author AuthorRef `json:"author"`

	// CreatedAt is the timestamp at which the component was uploaded.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the component.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// IsFavorite is computed per request for an identified caller and
	// omitted for anonymous callers.
	IsFavorite *bool `json:"isFavorite,omitempty" db:"-"`
}

// AuthorRef is the public view of a component's author. It never carries
// the author's email or password hash.
type AuthorRef struct {
	ID       uuid.UUID `json:"id" db:"author_id"`
	Username string    `json:"username" db:"author_username"`
}
