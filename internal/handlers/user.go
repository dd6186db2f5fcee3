package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/uimarket/uimarket/internal/services"
)

// UserHandler serves the current user's profile.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers profile routes; every route requires authentication.
func UserRouter(r chi.Router, userService *services.UserService, auth *Authenticator) {
	handler := NewUserHandler(userService)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require)
		r.Get("/me", handler.Me)
		r.Put("/me", handler.UpdateMe)
	})
}

// Me returns the current authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), callerID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe changes the fields present in the body.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Email != nil {
		normalized := services.NormalizeEmail(*req.Email)
		req.Email = &normalized
	}
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), callerID(r.Context()), services.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}
