package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/uimarket/uimarket/internal/services"
	"github.com/uimarket/uimarket/types"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// TokenRevoker records token ids that must no longer be accepted.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator issues and verifies bearer tokens.
type Authenticator struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker
}

// NewAuthenticator constructs an Authenticator. revoker may be nil, in which
// case tokens are valid until they expire.
func NewAuthenticator(jwtSecret string, ttl time.Duration, revoker TokenRevoker) *Authenticator {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{secret: []byte(jwtSecret), ttl: ttl, revoker: revoker}
}

// identity is the verified caller attached to a request.
type identity struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

// Require enforces authentication and injects the caller into context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.verify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextSubjectKey, id)))
	})
}

// Optional injects the caller when a valid token is present and otherwise
// proceeds anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.verify(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), contextSubjectKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) verify(r *http.Request) (identity, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return identity{}, err
	}
	id, err := parseToken(tokenString, a.secret)
	if err != nil {
		return identity{}, err
	}
	if a.revoker != nil && id.TokenID != "" {
		revoked, err := a.revoker.IsRevoked(r.Context(), id.TokenID)
		if err != nil {
			slog.WarnContext(r.Context(), "revocation check failed", "err", err)
		} else if revoked {
			return identity{}, errors.New("token revoked")
		}
	}
	return id, nil
}

// Issue signs a token for userID.
func (a *Authenticator) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) revoke(ctx context.Context, id identity) error {
	if a.revoker == nil || id.TokenID == "" {
		return nil
	}
	return a.revoker.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

func parseToken(tokenString string, secret []byte) (identity, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return identity{}, err
	}
	if !token.Valid {
		return identity{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity{}, errors.New("missing subject")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return identity{}, errors.New("invalid subject")
	}
	return identity{UserID: userID, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// AuthHandler provides registration, login and logout endpoints.
type AuthHandler struct {
	userService *services.UserService
	auth        *Authenticator
}

func NewAuthHandler(userService *services.UserService, auth *Authenticator) *AuthHandler {
	return &AuthHandler{userService: userService, auth: auth}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, auth *Authenticator) {
	handler := NewAuthHandler(userService, auth)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(auth.Require).Post("/logout", handler.Logout)
}

// Register creates a new user account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = services.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), services.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.auth.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Email = services.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.auth.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user.Summary()})
}

// Logout revokes the presented token until it would have expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.revoke(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type LoginResponse struct {
	Token string            `json:"token"`
	User  types.UserSummary `json:"user"`
}
