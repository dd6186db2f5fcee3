// Package client is the editor-side half of the marketplace: an API client,
// the cached session, catalog tree views and snippet insertion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uimarket/uimarket/types"
)

const defaultTimeout = 15 * time.Second

// ErrUnauthorized is returned for any 401 from the API.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response decoded from the API error body.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+" "+msg)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// API talks to the marketplace REST backend.
type API struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewAPI returns a client rooted at baseURL, e.g. "http://localhost:8080".
func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetAuthToken sets the bearer token sent with every request. Empty clears it.
func (a *API) SetAuthToken(token string) {
	a.authToken = token
}

// AuthToken returns the token currently attached to requests.
func (a *API) AuthToken() string {
	return a.authToken
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  types.UserSummary `json:"user"`
}

// NewUpload is the body of a component upload.
type NewUpload struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    types.Category `json:"category"`
	Tags        []string       `json:"tags"`
	Code        string         `json:"code"`
}

type favoriteResponse struct {
	IsFavorite bool `json:"isFavorite"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// Register creates an account and returns its token.
func (a *API) Register(ctx context.Context, username, email, password string) (string, types.User, error) {
	var resp registerResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/register", nil,
		registerRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return "", types.User{}, err
	}
	return resp.Token, resp.User, nil
}

// Login exchanges credentials for a token.
func (a *API) Login(ctx context.Context, email, password string) (string, types.UserSummary, error) {
	var resp loginResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/login", nil,
		loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", types.UserSummary{}, err
	}
	return resp.Token, resp.User, nil
}

// Logout revokes the current token on the server.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// Me returns the profile behind the current token.
func (a *API) Me(ctx context.Context) (types.User, error) {
	var user types.User
	if err := a.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (a *API) ListComponents(ctx context.Context, q types.ComponentQuery) ([]types.Component, error) {
	var items []types.Component
	if err := a.do(ctx, http.MethodGet, "/api/components", q.Values(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *API) GetComponent(ctx context.Context, id string) (types.Component, error) {
	var component types.Component
	if err := a.do(ctx, http.MethodGet, "/api/components/"+url.PathEscape(id), nil, nil, &component); err != nil {
		return types.Component{}, err
	}
	return component, nil
}

func (a *API) CreateComponent(ctx context.Context, in NewUpload) (types.Component, error) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var component types.Component
	if err := a.do(ctx, http.MethodPost, "/api/components", nil, in, &component); err != nil {
		return types.Component{}, err
	}
	return component, nil
}

// ToggleFavorite flips the component's membership in the caller's favorites
// and returns the new state.
func (a *API) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var resp favoriteResponse
	if err := a.do(ctx, http.MethodPost, "/api/components/"+url.PathEscape(id)+"/favorite", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsFavorite, nil
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.authToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
