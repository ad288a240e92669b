package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/pkg/httputil"
	"github.com/azha0089/HealthyLife/pkg/middleware"
	"github.com/azha0089/HealthyLife/pkg/pagination"
	"github.com/azha0089/HealthyLife/pkg/validator"
)

// RatingHandler handles HTTP requests for recipe rating endpoints.
type RatingHandler struct {
	service *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{service: svc, logger: logger}
}

// SubmitRatingRequest is the JSON request body for rating a recipe.
type SubmitRatingRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// UserRatingResponse reports the caller's rating, null when they never rated.
type UserRatingResponse struct {
	Rating *int `json:"rating"`
}

// Submit handles POST /api/v1/recipes/{recipeId}/ratings
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRatingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Submit(r.Context(), service.SubmitRatingInput{
		RecipeID: chi.URLParam(r, "recipeId"),
		UserID:   middleware.UserIDFromContext(r.Context()),
		Rating:   req.Rating,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Mine handles GET /api/v1/recipes/{recipeId}/ratings/me
func (h *RatingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	rating, err := h.service.GetUserRating(r.Context(), chi.URLParam(r, "recipeId"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, UserRatingResponse{Rating: rating})
}

// List handles GET /api/v1/recipes/{recipeId}/ratings
func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := pagination.Limit(r, "limit", service.DefaultRatingsLimit, service.MaxRatingsLimit)
	ratings := h.service.ListRecipeRatings(r.Context(), chi.URLParam(r, "recipeId"), limit)
	httputil.WriteData(w, http.StatusOK, ratings)
}
