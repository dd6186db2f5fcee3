package types

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SortKey selects the ordering of a component listing.
type SortKey string

const (
	// SortNewest orders by creation time, newest first. It is the default.
	SortNewest SortKey = "newest"
	// SortName orders by name ascending.
	SortName SortKey = "name"
	// SortPopular orders by how many users hold the component in their
	// favorites, most popular first, ties broken by SortNewest.
	SortPopular SortKey = "popular"
)

// ParseSortKey maps a raw query value to a SortKey. An empty value yields
// SortNewest.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortNewest, nil
	case SortNewest, SortName, SortPopular:
		return key, nil
	default:
		return "", fmt.Errorf("sort must be one of newest, name, popular")
	}
}

// ComponentQuery is the caller-facing description of a catalog listing.
type ComponentQuery struct {
	// Search is matched as terms against name, description and tags.
	Search string
	// Category restricts results to an exact category. Unknown values are
	// accepted and match nothing.
	Category Category
	// Sort selects the ordering.
	Sort SortKey
	// FavoritesOnly restricts results to the caller's favorites and
	// requires an identified caller.
	FavoritesOnly bool
}

// QueryError reports a query parameter that could not be parsed.
type QueryError struct {
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	return e.Field + ": " + e.Message
}

// ParseComponentQuery validates the query string of a listing request.
func ParseComponentQuery(values url.Values) (ComponentQuery, error) {
	sortKey, err := ParseSortKey(values.Get("sort"))
	if err != nil {
		return ComponentQuery{}, &QueryError{Field: "sort", Message: err.Error()}
	}

	var favoritesOnly bool
	if raw := strings.TrimSpace(values.Get("favorites")); raw != "" {
		favoritesOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return ComponentQuery{}, &QueryError{Field: "favorites", Message: "favorites must be true or false"}
		}
	}

	return ComponentQuery{
		Search:        strings.TrimSpace(values.Get("search")),
		Category:      Category(strings.TrimSpace(values.Get("category"))),
		Sort:          sortKey,
		FavoritesOnly: favoritesOnly,
	}, nil
}

// Values encodes the query back into URL parameters.
func (q ComponentQuery) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Category != "" {
		values.Set("category", string(q.Category))
	}
	if q.Sort != "" && q.Sort != SortNewest {
		values.Set("sort", string(q.Sort))
	}
	if q.FavoritesOnly {
		values.Set("favorites", "true")
	}
	return values
}

// ComponentFilter is the store-level form of a listing.
type ComponentFilter struct {
	Search   string
	Category Category
	Sort     SortKey
	// RestrictIDs limits results to IDs. An empty IDs with RestrictIDs set
	// matches nothing.
	RestrictIDs bool
	IDs         []uuid.UUID
}
