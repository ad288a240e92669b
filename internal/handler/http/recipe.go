package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/pkg/httputil"
	"github.com/azha0089/HealthyLife/pkg/pagination"
	"github.com/azha0089/HealthyLife/pkg/validator"
)

// RecipeHandler handles HTTP requests for recipe endpoints.
type RecipeHandler struct {
	service *service.RecipeService
	logger  *slog.Logger
}

// NewRecipeHandler creates a new recipe HTTP handler.
func NewRecipeHandler(svc *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RecipeRequest is the JSON request body for creating or replacing a recipe.
type RecipeRequest struct {
	Title        string              `json:"title" validate:"required,min=1,max=200"`
	Description  string              `json:"description" validate:"omitempty,max=2000"`
	Category     string              `json:"category" validate:"required,oneof=breakfast lunch dinner dessert vegan"`
	ImageURL     string              `json:"image" validate:"omitempty,url"`
	PrepTime     int                 `json:"prep_time" validate:"gte=0"`
	CookTime     int                 `json:"cook_time" validate:"gte=0"`
	TotalTime    int                 `json:"total_time" validate:"gte=0"`
	Servings     int                 `json:"servings" validate:"gte=0"`
	Calories     int                 `json:"calories" validate:"gte=0"`
	Budget       string              `json:"budget" validate:"omitempty,oneof=low medium high"`
	Difficulty   string              `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags         []string            `json:"tags" validate:"omitempty,max=30,dive,min=1,max=50"`
	Ingredients  []domain.Ingredient `json:"ingredients" validate:"omitempty,dive"`
	Instructions []string            `json:"instructions"`
	Tips         []string            `json:"tips"`
	Nutrition    domain.Nutrition    `json:"nutrition"`
}

func (req RecipeRequest) toDomain() *domain.Recipe {
	return &domain.Recipe{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		PrepTime:    req.PrepTime,
		CookTime:    req.CookTime,
		TotalTime:   req.TotalTime,
		Servings:    req.Servings,
		Calories:    req.Calories,
		Budget:      req.Budget,
		Difficulty:  req.Difficulty,
		Tags:        req.Tags,
		Details: domain.RecipeDetails{
			Ingredients:  req.Ingredients,
			Instructions: req.Instructions,
			Tips:         req.Tips,
			Nutrition:    req.Nutrition,
		},
	}
}

// BatchDeleteRequest is the JSON request body for deleting several recipes.
type BatchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}

// --- Handlers ---

// List handles GET /api/v1/recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RecipeFilter{
		Category:   q.Get("category"),
		Budget:     multiValue(q["budget"]),
		Difficulty: multiValue(q["difficulty"]),
		Time:       multiValue(q["time"]),
		Calories:   multiValue(q["calories"]),
		Tags:       multiValue(q["tags"]),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if filter.Category == "all" {
		filter.Category = ""
	}

	result, err := h.service.List(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Popular handles GET /api/v1/recipes/popular
func (h *RecipeHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := pagination.Limit(r, "limit", service.DefaultPopularLimit, service.MaxPopularLimit)
	recipes, err := h.service.Popular(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, recipes)
}

// Counts handles GET /api/v1/recipes/counts
func (h *RecipeHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, counts)
}

// Filters handles GET /api/v1/recipes/filters
func (h *RecipeHandler) Filters(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Filters())
}

// Get handles GET /api/v1/recipes/{recipeId}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.service.Get(r.Context(), chi.URLParam(r, "recipeId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, recipe)
}

// Related handles GET /api/v1/recipes/{recipeId}/related
func (h *RecipeHandler) Related(w http.ResponseWriter, r *http.Request) {
	limit := pagination.Limit(r, "limit", service.DefaultRelatedLimit, service.MaxRelatedLimit)
	recipes, err := h.service.Related(r.Context(), chi.URLParam(r, "recipeId"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, recipes)
}

// Create handles POST /api/v1/admin/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	recipe, err := h.service.Create(r.Context(), req.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, recipe)
}

// Update handles PUT /api/v1/admin/recipes/{recipeId}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	recipe, err := h.service.Update(r.Context(), chi.URLParam(r, "recipeId"), req.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, recipe)
}

// Delete handles DELETE /api/v1/admin/recipes/{recipeId}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "recipeId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDelete handles POST /api/v1/admin/recipes/batch-delete
func (h *RecipeHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	n, err := h.service.BatchDelete(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]int{"deleted": n})
}

// multiValue accepts both repeated parameters and comma-separated lists.
func multiValue(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
