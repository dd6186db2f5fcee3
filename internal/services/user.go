package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/uimarket/uimarket/internal/apperr"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/types"
	"golang.org/x/crypto/bcrypt"
)

const msgBadCredentials = "email or password incorrect"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	ToggleFavorite(ctx context.Context, userID, componentID uuid.UUID) (bool, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

// NewUserService constructs a UserService. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// Registration is the input of Register.
type Registration struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate carries the profile fields to change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Username and email are checked together in
// one query; a unique violation on insert is reported the same way.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	username := strings.TrimSpace(reg.Username)
	email := NormalizeEmail(reg.Email)

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return types.User{}, apperr.Internal("failed to check user", err)
	}
	if exists {
		return types.User{}, apperr.Conflict("username or email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, apperr.Internal("failed to create user", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, apperr.Conflict("username or email already exists")
		}
		return types.User{}, apperr.Internal("failed to create user", err)
	}
	return user, nil
}

// Authenticate resolves a user by email and checks the password. Both an
// unknown email and a wrong password produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.Unauthenticated(msgBadCredentials)
		}
		return types.User{}, apperr.Internal("failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, apperr.Unauthenticated(msgBadCredentials)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound("user not found")
		}
		return types.User{}, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

// UpdateProfile applies update to the user. The password hash is recomputed
// only when a new password is supplied.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (types.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.Email != nil {
		user.Email = NormalizeEmail(*update.Email)
	}
	if update.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), s.bcryptCost)
		if err != nil {
			return types.User{}, apperr.Internal("failed to update user", err)
		}
		user.PasswordHash = string(hashed)
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return types.User{}, apperr.Conflict("username or email already exists")
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, apperr.NotFound("user not found")
		default:
			return types.User{}, apperr.Internal("failed to update user", err)
		}
	}
	updated.Favorites = user.Favorites
	return updated, nil
}
