package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uimarket/uimarket/internal/services"
	"github.com/uimarket/uimarket/internal/store/memstore"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	auth   *Authenticator
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := memstore.New()
	userService := services.NewUserService(mem.Users(), bcrypt.MinCost)
	componentService := services.NewComponentService(mem.Components(), mem.Users(), nil)
	favoriteService := services.NewFavoriteService(componentService, mem.Users(), nil)
	auth := NewAuthenticator(testSecret, time.Hour, &memoryRevoker{revoked: map[string]time.Time{}})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/healthz", Healthz)
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, userService, auth)
		})
		r.Route("/users", func(r chi.Router) {
			UserRouter(r, userService, auth)
		})
		r.Route("/components", func(r chi.Router) {
			ComponentRouter(r, componentService, favoriteService, auth)
		})
	})
	return &testAPI{t: t, router: r, auth: auth}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) register(username, email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](a.t, rec)["token"].(string)
}

var btnBody = map[string]any{
	"name":        "Btn",
	"description": "A nice button component",
	"category":    "buttons",
	"tags":        []string{"ui"},
	"code":        "<button/>",
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterAndLoginScenario(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "passwordHash")

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email or password incorrect", decode[ErrorResponse](t, rec).Error)

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email or password incorrect", decode[ErrorResponse](t, rec).Error)

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ALICE@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[LoginResponse](t, rec)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "alice@x.com", login.User.Email)

	rec = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "new@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": " al ", "email": "not-an-email", "password": "secret1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "must be at least 3 characters", resp.Fields["username"])
	assert.Equal(t, "must be a valid email address", resp.Fields["email"])
	assert.NotContains(t, resp.Fields, "password")

	rec = api.do(http.MethodPost, "/api/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMandatoryGate(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", "alice@x.com", "secret1")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	foreignToken, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSubjectToken, err := badSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"missing":     "",
		"garbage":     "abc.def.ghi",
		"expired":     expiredToken,
		"foreign":     foreignToken,
		"bad subject": badSubjectToken,
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/components", tok, btnBody)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		})
	}

	rec := api.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice", "alice@x.com", "secret1")

	rec := api.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/components", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "a revoked token on an optional route reads anonymously")
}

func TestComponentScenario(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice", "alice@x.com", "secret1")

	rec := api.do(http.MethodPost, "/api/components", alice, btnBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", created["author"].(map[string]any)["username"])
	assert.NotContains(t, created, "isFavorite")
	id := created["id"].(string)

	rec = api.do(http.MethodPost, "/api/components/"+id+"/favorite", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isFavorite":true}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/components?favorites=true", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	favorites := decode[[]map[string]any](t, rec)
	require.Len(t, favorites, 1)
	assert.Equal(t, true, favorites[0]["isFavorite"])

	rec = api.do(http.MethodGet, "/api/components/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode[map[string]any](t, rec), "isFavorite")

	rec = api.do(http.MethodPost, "/api/components/"+id+"/favorite", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isFavorite":false}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/components/"+id, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["isFavorite"])
}

func TestCreateComponentValidation(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice", "alice@x.com", "secret1")

	rec := api.do(http.MethodPost, "/api/components", alice, map[string]any{
		"name":        "B",
		"description": "short",
		"category":    "widgets",
		"code":        "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "description")
	assert.Equal(t, "must be one of buttons, cards, forms, navigation, other", fields["category"])
	assert.Equal(t, "is required", fields["code"])
}

func TestListComponents(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice", "alice@x.com", "secret1")
	rec := api.do(http.MethodPost, "/api/components", alice, btnBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		check  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:   "favorites without identity",
			path:   "/api/components?favorites=true",
			status: http.StatusUnauthorized,
		},
		{
			name:   "favorites with invalid token",
			path:   "/api/components?favorites=true",
			token:  "not-a-token",
			status: http.StatusUnauthorized,
		},
		{
			name:   "empty category",
			path:   "/api/components?category=forms",
			status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `[]`, rec.Body.String())
			},
		},
		{
			name:   "anonymous listing",
			path:   "/api/components?search=button",
			status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				items := decode[[]map[string]any](t, rec)
				require.Len(t, items, 1)
				assert.NotContains(t, items[0], "isFavorite")
			},
		},
		{
			name:   "identified listing",
			path:   "/api/components?sort=name",
			token:  alice,
			status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				items := decode[[]map[string]any](t, rec)
				require.Len(t, items, 1)
				assert.Equal(t, false, items[0]["isFavorite"])
			},
		},
		{
			name:   "unknown sort",
			path:   "/api/components?sort=random",
			status: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "sort")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodGet, tt.path, tt.token, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestComponentNotFound(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice", "alice@x.com", "secret1")

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		rec := api.do(http.MethodGet, "/api/components/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)

		rec = api.do(http.MethodPost, "/api/components/"+id+"/favorite", alice, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestUpdateMe(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("alice", "alice@x.com", "secret1")
	api.register("bob", "bob@x.com", "secret1")

	rec := api.do(http.MethodPut, "/api/users/me", alice, map[string]string{"username": "alicia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[map[string]any](t, rec)
	assert.Equal(t, "alicia", user["username"])
	assert.Equal(t, "alice@x.com", user["email"])

	rec = api.do(http.MethodPut, "/api/users/me", alice, map[string]string{"email": "bob@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/users/me", alice, map[string]string{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "email")

	rec = api.do(http.MethodGet, "/api/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alicia", decode[map[string]any](t, rec)["username"])
}
