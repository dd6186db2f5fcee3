package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/uimarket/uimarket/types"
)

// TokenKey is the namespace key the token is stored under.
const TokenKey = "uimarket.authToken"

const (
	sessionFile  = "session.json"
	lockFile     = "session.lock"
	lockTimeout  = 5 * time.Second
	lockInterval = 50 * time.Millisecond
)

// ErrSessionLocked is returned when another process holds the session lock
// for longer than the lock timeout.
var ErrSessionLocked = errors.New("session is locked by another process")

// Session is the client-held identity: a bearer token and the profile it
// resolved to. The token lives on disk between runs.
type Session struct {
	dir  string
	api  *API
	user *types.User
}

// DefaultSessionDir is ~/.config/uimarket, or the OS equivalent.
func DefaultSessionDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "uimarket"), nil
}

func NewSession(dir string, api *API) *Session {
	return &Session{dir: dir, api: api}
}

// User returns the cached profile, or nil when signed out.
func (s *Session) User() *types.User {
	return s.user
}

// Restore reads the stored token and revalidates it against the API. A token
// the API rejects is discarded; any other failure leaves it stored.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.readToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.api.SetAuthToken(token)
	user, err := s.api.Me(ctx)
	if err != nil {
		s.api.SetAuthToken("")
		if errors.Is(err, ErrUnauthorized) {
			return s.clear(ctx)
		}
		return err
	}
	s.user = &user
	return nil
}

// Login authenticates, stores the token and caches the profile.
func (s *Session) Login(ctx context.Context, email, password string) (types.User, error) {
	token, _, err := s.api.Login(ctx, email, password)
	if err != nil {
		return types.User{}, err
	}
	return s.establish(ctx, token)
}

// Register creates the account and signs in as it.
func (s *Session) Register(ctx context.Context, username, email, password string) (types.User, error) {
	token, _, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return types.User{}, err
	}
	return s.establish(ctx, token)
}

func (s *Session) establish(ctx context.Context, token string) (types.User, error) {
	s.api.SetAuthToken(token)
	user, err := s.api.Me(ctx)
	if err != nil {
		s.api.SetAuthToken("")
		return types.User{}, err
	}
	if err := s.writeToken(ctx, token); err != nil {
		s.api.SetAuthToken("")
		return types.User{}, err
	}
	s.user = &user
	return user, nil
}

// Logout revokes the token on the server when possible, then forgets it
// locally regardless. The server error, if any, is returned after the local
// state is cleared.
func (s *Session) Logout(ctx context.Context) error {
	var remoteErr error
	if s.api.AuthToken() != "" {
		remoteErr = s.api.Logout(ctx)
		if errors.Is(remoteErr, ErrUnauthorized) {
			remoteErr = nil
		}
	}
	s.api.SetAuthToken("")
	s.user = nil
	return errors.Join(remoteErr, s.clear(ctx))
}

func (s *Session) path() string {
	return filepath.Join(s.dir, sessionFile)
}

func (s *Session) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	lock := flock.New(filepath.Join(s.dir, lockFile))

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock session: %w", err)
	}
	if !locked {
		return ErrSessionLocked
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

func (s *Session) readToken(ctx context.Context) (string, error) {
	var token string
	err := s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.path())
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		values := map[string]string{}
		if err := json.Unmarshal(data, &values); err != nil {
			// Unreadable state is treated as signed out.
			return nil
		}
		token = values[TokenKey]
		return nil
	})
	return token, err
}

func (s *Session) writeToken(ctx context.Context, token string) error {
	return s.withLock(ctx, func() error {
		data, err := json.Marshal(map[string]string{TokenKey: token})
		if err != nil {
			return err
		}
		tmp := s.path() + ".tmp"
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
		if err := os.Rename(tmp, s.path()); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
		return nil
	})
}

func (s *Session) clear(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear session: %w", err)
		}
		return nil
	})
}
