package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/pkg/httputil"
	"github.com/azha0089/HealthyLife/pkg/middleware"
	"github.com/azha0089/HealthyLife/pkg/pagination"
)

// FavoriteHandler handles HTTP requests for favorite endpoints.
type FavoriteHandler struct {
	service *service.FavoriteService
	logger  *slog.Logger
}

// NewFavoriteHandler creates a new favorite HTTP handler.
func NewFavoriteHandler(svc *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pagination.Limit(r, "limit", service.DefaultFavoritesLimit, service.MaxFavoritesLimit)
	favs, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, favs)
}

// Check handles GET /api/v1/favorites/{recipeId}
func (h *FavoriteHandler) Check(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.IsFavorited(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]bool{"is_favorited": ok})
}

// Add handles POST /api/v1/favorites/{recipeId}
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	fav, err := h.service.Add(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, fav)
}

// Remove handles DELETE /api/v1/favorites/{recipeId}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "recipeId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /api/v1/favorites/{recipeId}/toggle
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Toggle(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}
