// Package memstore provides in-memory user and component repositories with
// the same semantics as the Postgres store. It backs STORE_BACKEND=memory and
// doubles as the store in service and handler tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
)

// Store holds users and components behind a single lock so that component
// reads can join author names and popularity counts consistently.
type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]types.User
	components map[uuid.UUID]types.Component
	now        func() time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[uuid.UUID]types.User),
		components: make(map[uuid.UUID]types.Component),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source used for created/updated times.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Components returns a ComponentRepository view of the store.
func (s *Store) Components() *ComponentRepository {
	return &ComponentRepository{s: s}
}

// UserRepository implements the user persistence operations in memory.
type UserRepository struct {
	s *Store
}

func cloneUser(user types.User) types.User {
	user.Favorites = slices.Clone(user.Favorites)
	if user.Favorites == nil {
		user.Favorites = []uuid.UUID{}
	}
	return user
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.taken(uuid.Nil, username, email), nil
}

// taken reports whether another user than except holds username or email.
// Callers hold the lock.
func (s *Store) taken(except uuid.UUID, username, email string) bool {
	for id, user := range s.users {
		if id == except {
			continue
		}
		if user.Username == username || user.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.taken(uuid.Nil, user.Username, user.Email) {
		return types.User{}, store.ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user = cloneUser(user)
	r.s.users[user.ID] = user
	return cloneUser(user), nil
}

// Update writes the profile fields of user; favorites are preserved.
func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.s.taken(user.ID, user.Username, user.Email) {
		return types.User{}, store.ErrDuplicate
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = r.s.now()
	r.s.users[user.ID] = existing
	return cloneUser(existing), nil
}

func (r *UserRepository) ToggleFavorite(_ context.Context, userID, componentID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	favorites := slices.Clone(user.Favorites)
	favorite := false
	if i := slices.Index(favorites, componentID); i >= 0 {
		favorites = slices.Delete(favorites, i, i+1)
	} else {
		favorites = append(favorites, componentID)
		favorite = true
	}
	user.Favorites = favorites
	user.UpdatedAt = r.s.now()
	r.s.users[userID] = user
	return favorite, nil
}

// ComponentRepository implements the component persistence operations in memory.
type ComponentRepository struct {
	s *Store
}

func (s *Store) withAuthor(component types.Component) types.Component {
	component.Tags = slices.Clone(component.Tags)
	if component.Tags == nil {
		component.Tags = []string{}
	}
	component.Author.Username = s.users[component.Author.ID].Username
	component.IsFavorite = nil
	return component
}

func (r *ComponentRepository) Get(_ context.Context, id uuid.UUID) (types.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	component, ok := r.s.components[id]
	if !ok {
		return types.Component{}, store.ErrNotFound
	}
	return r.s.withAuthor(component), nil
}

func (r *ComponentRepository) Create(_ context.Context, component types.Component) (types.Component, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[component.Author.ID]; !ok {
		return types.Component{}, store.ErrNotFound
	}
	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	now := r.s.now()
	component.CreatedAt = now
	component.UpdatedAt = now
	component = r.s.withAuthor(component)
	r.s.components[component.ID] = component
	return r.s.withAuthor(component), nil
}

// List mirrors the SQL listing: every search term must appear as a token of
// the name, description or tags; categories match exactly.
func (r *ComponentRepository) List(_ context.Context, filter types.ComponentFilter) ([]types.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	terms := tokenize(filter.Search)
	var allowed map[uuid.UUID]struct{}
	if filter.RestrictIDs {
		allowed = make(map[uuid.UUID]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			allowed[id] = struct{}{}
		}
	}

	results := make([]types.Component, 0)
	for _, component := range r.s.components {
		if filter.Category != "" && component.Category != filter.Category {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[component.ID]; !ok {
				continue
			}
		}
		if len(terms) > 0 && !matchesAll(component, terms) {
			continue
		}
		results = append(results, r.s.withAuthor(component))
	}

	newest := func(a, b types.Component) bool { return a.CreatedAt.After(b.CreatedAt) }
	switch filter.Sort {
	case types.SortName:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Name != results[j].Name {
				return results[i].Name < results[j].Name
			}
			return newest(results[i], results[j])
		})
	case types.SortPopular:
		counts := r.s.favoriteCounts()
		sort.SliceStable(results, func(i, j int) bool {
			ci, cj := counts[results[i].ID], counts[results[j].ID]
			if ci != cj {
				return ci > cj
			}
			return newest(results[i], results[j])
		})
	default:
		sort.SliceStable(results, func(i, j int) bool { return newest(results[i], results[j]) })
	}
	return results, nil
}

func (s *Store) favoriteCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, user := range s.users {
		for _, id := range user.Favorites {
			counts[id]++
		}
	}
	return counts
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func matchesAll(component types.Component, terms []string) bool {
	tokens := make(map[string]struct{})
	add := func(text string) {
		for _, token := range tokenize(text) {
			tokens[token] = struct{}{}
		}
	}
	add(component.Name)
	add(component.Description)
	for _, tag := range component.Tags {
		add(tag)
	}
	for _, term := range terms {
		if _, ok := tokens[term]; !ok {
			return false
		}
	}
	return true
}
