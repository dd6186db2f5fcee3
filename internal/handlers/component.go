package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/uimarket/uimarket/internal/apperr"
	"github.com/uimarket/uimarket/internal/services"
	"github.com/uimarket/uimarket/types"
)

// ComponentHandler provides HTTP handlers for the component catalog.
type ComponentHandler struct {
	componentService *services.ComponentService
	favoriteService  *services.FavoriteService
}

func NewComponentHandler(componentService *services.ComponentService, favoriteService *services.FavoriteService) *ComponentHandler {
	return &ComponentHandler{
		componentService: componentService,
		favoriteService:  favoriteService,
	}
}

// ComponentRouter registers component routes. Reads identify the caller
// when they can; writes require it.
func ComponentRouter(
	r chi.Router,
	componentService *services.ComponentService,
	favoriteService *services.FavoriteService,
	auth *Authenticator,
) {
	handler := NewComponentHandler(componentService, favoriteService)

	r.With(auth.Optional).Get("/", handler.ListComponents)
	r.With(auth.Require).Post("/", handler.CreateComponent)
	r.Route("/{componentID}", func(r chi.Router) {
		r.With(auth.Optional).Get("/", handler.GetComponent)
		r.With(auth.Require).Post("/favorite", handler.ToggleFavorite)
	})
}

func (h *ComponentHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	query, err := types.ParseComponentQuery(r.URL.Query())
	if err != nil {
		var queryErr *types.QueryError
		if errors.As(err, &queryErr) {
			respondError(w, r, apperr.Validation("invalid query", map[string]string{queryErr.Field: queryErr.Message}))
			return
		}
		respondError(w, r, apperr.Validation(err.Error(), nil))
		return
	}

	items, err := h.componentService.List(r.Context(), query, callerID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ComponentHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	component, err := h.componentService.Get(r.Context(), chi.URLParam(r, "componentID"), callerID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, component)
}

func (h *ComponentHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var req CreateComponentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	component, err := h.componentService.Create(r.Context(), callerID(r.Context()), services.NewComponent{
		Name:        req.Name,
		Description: req.Description,
		Category:    types.Category(req.Category),
		Tags:        req.Tags,
		Code:        req.Code,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, component)
}

func (h *ComponentHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorite, err := h.favoriteService.Toggle(r.Context(), callerID(r.Context()), chi.URLParam(r, "componentID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{IsFavorite: favorite})
}

type CreateComponentRequest struct {
	Name        string   `json:"name" validate:"required,min=3,max=100"`
	Description string   `json:"description" validate:"required,min=10,max=500"`
	Category    string   `json:"category" validate:"required,category"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	Code        string   `json:"code" validate:"required"`
}

type FavoriteResponse struct {
	IsFavorite bool `json:"isFavorite"`
}
