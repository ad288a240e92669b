package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	"github.com/azha0089/HealthyLife/internal/repository"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
	"github.com/azha0089/HealthyLife/pkg/pagination"
)

// Listing defaults.
const (
	DefaultPopularLimit = 5
	MaxPopularLimit     = 50
	DefaultRelatedLimit = 3
	MaxRelatedLimit     = 20
	MaxBatchDelete      = 100
)

// RecipeService implements recipe browsing and administration.
type RecipeService struct {
	recipes  repository.RecipeRepository
	resolver *RecipeResolver
	popular  repository.PopularRecipeCache
	producer *event.Producer
	logger   *slog.Logger
	newKey   func() string
	now      func() time.Time
}

// NewRecipeService creates a recipe service. popular may be nil.
func NewRecipeService(
	recipes repository.RecipeRepository,
	resolver *RecipeResolver,
	popular repository.PopularRecipeCache,
	producer *event.Producer,
	logger *slog.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:  recipes,
		resolver: resolver,
		popular:  popular,
		producer: producer,
		logger:   logger,
		newKey:   uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of recipes matching filter.
func (s *RecipeService) List(ctx context.Context, filter domain.RecipeFilter, page pagination.Params) (pagination.Result[domain.Recipe], error) {
	filter.Page = page.Page
	filter.PerPage = page.PerPage
	if filter.Category != "" && !domain.IsValidCategory(filter.Category) {
		return pagination.Result[domain.Recipe]{}, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", filter.Category))
	}

	recipes, total, err := s.recipes.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Recipe]{}, fmt.Errorf("list recipes: %w", err)
	}
	return pagination.NewResult(recipes, total, page), nil
}

// Get returns the recipe addressed by rawID.
func (s *RecipeService) Get(ctx context.Context, rawID string) (*domain.Recipe, error) {
	ref, err := s.resolver.Resolve(ctx, rawID)
	if err != nil {
		return nil, err
	}
	recipe, err := s.recipes.GetByKey(ctx, ref.Key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, recipeNotFound(rawID)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return recipe, nil
}

// Popular returns the highest rated recipes, served from cache when possible.
func (s *RecipeService) Popular(ctx context.Context, limit int) ([]domain.Recipe, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	if limit > MaxPopularLimit {
		limit = MaxPopularLimit
	}

	if s.popular != nil {
		cached, ok, err := s.popular.Get(ctx, limit)
		if err != nil {
			s.logger.WarnContext(ctx, "popular recipe cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return cached, nil
		}
	}

	recipes, err := s.recipes.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular recipes: %w", err)
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}

	if s.popular != nil {
		if err := s.popular.Set(ctx, limit, recipes); err != nil {
			s.logger.WarnContext(ctx, "popular recipe cache write failed", slog.String("error", err.Error()))
		}
	}
	return recipes, nil
}

// Related returns other recipes in the same category as rawID.
func (s *RecipeService) Related(ctx context.Context, rawID string, limit int) ([]domain.Recipe, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if limit > MaxRelatedLimit {
		limit = MaxRelatedLimit
	}

	recipe, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	related, err := s.recipes.Related(ctx, recipe.Category, recipe.Key, limit)
	if err != nil {
		return nil, fmt.Errorf("related recipes: %w", err)
	}
	if related == nil {
		related = []domain.Recipe{}
	}
	return related, nil
}

// Counts returns the number of recipes per category, plus "all".
func (s *RecipeService) Counts(ctx context.Context) (map[string]int, error) {
	byCategory, err := s.recipes.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}

	counts := make(map[string]int, len(domain.Categories)+1)
	for _, c := range domain.Categories {
		counts[c] = 0
	}
	total := 0
	for c, n := range byCategory {
		counts[c] = n
		total += n
	}
	counts["all"] = total
	return counts, nil
}

// Filters returns the listing filter catalogue.
func (s *RecipeService) Filters() domain.FilterOptions {
	return domain.DefaultFilterOptions()
}

// Create stores a new recipe under a fresh canonical key. The rating summary
// always starts empty.
func (s *RecipeService) Create(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, error) {
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	now := s.now()
	recipe.Key = s.newKey()
	recipe.LegacyID = nil
	recipe.Rating = domain.RatingSummary{}
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	recipe.Normalize()

	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	if err := s.producer.PublishRecipeCreated(ctx, recipe); err != nil {
		s.logger.WarnContext(ctx, "failed to publish recipe.created event",
			slog.String("recipe_id", recipe.Key),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "recipe created",
		slog.String("recipe_id", recipe.Key),
		slog.String("title", recipe.Title),
	)
	return recipe, nil
}

// Update replaces the authored fields of the recipe addressed by rawID. The
// stored rating summary is kept.
func (s *RecipeService) Update(ctx context.Context, rawID string, recipe *domain.Recipe) (*domain.Recipe, error) {
	if err := validateRecipe(recipe); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}

	recipe.Key = current.Key
	recipe.LegacyID = current.LegacyID
	recipe.Rating = current.Rating
	recipe.CreatedAt = current.CreatedAt
	recipe.UpdatedAt = s.now()
	recipe.Normalize()

	if err := s.recipes.Update(ctx, recipe); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, recipeNotFound(rawID)
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	if err := s.producer.PublishRecipeUpdated(ctx, recipe); err != nil {
		s.logger.WarnContext(ctx, "failed to publish recipe.updated event",
			slog.String("recipe_id", recipe.Key),
			slog.String("error", err.Error()),
		)
	}
	return recipe, nil
}

// Delete removes the recipe addressed by rawID.
func (s *RecipeService) Delete(ctx context.Context, rawID string) error {
	ref, err := s.resolver.Resolve(ctx, rawID)
	if err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, ref.Key); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return recipeNotFound(rawID)
		}
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.deleted(ctx, ref.Key)
	return nil
}

// BatchDelete removes every listed recipe in one transaction and returns how
// many were deleted. Identifiers that do not resolve are ignored.
func (s *RecipeService) BatchDelete(ctx context.Context, rawIDs []string) (int, error) {
	if len(rawIDs) == 0 {
		return 0, apperrors.InvalidInput("at least one recipe id is required")
	}
	if len(rawIDs) > MaxBatchDelete {
		return 0, apperrors.InvalidInput(fmt.Sprintf("at most %d recipes can be deleted at once", MaxBatchDelete))
	}

	keys := make([]string, 0, len(rawIDs))
	seen := make(map[string]struct{}, len(rawIDs))
	for _, raw := range rawIDs {
		ref, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return 0, err
		}
		if _, ok := seen[ref.Key]; ok {
			continue
		}
		seen[ref.Key] = struct{}{}
		keys = append(keys, ref.Key)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.recipes.BatchDelete(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("batch delete recipes: %w", err)
	}
	for _, key := range keys {
		s.deleted(ctx, key)
	}
	s.logger.InfoContext(ctx, "recipes batch deleted", slog.Int("deleted", n))
	return n, nil
}

func (s *RecipeService) deleted(ctx context.Context, key string) {
	s.resolver.Evict(ctx, key)
	if s.popular != nil {
		if err := s.popular.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate popular recipes", slog.String("error", err.Error()))
		}
	}
	if err := s.producer.PublishRecipeDeleted(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to publish recipe.deleted event",
			slog.String("recipe_id", key),
			slog.String("error", err.Error()),
		)
	}
}

func validateRecipe(r *domain.Recipe) error {
	if r == nil {
		return apperrors.InvalidInput("recipe is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apperrors.InvalidInput("title is required")
	}
	if !domain.IsValidCategory(r.Category) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown category %q", r.Category))
	}
	if r.PrepTime < 0 || r.CookTime < 0 || r.Servings < 0 || r.Calories < 0 {
		return apperrors.InvalidInput("times, servings and calories must not be negative")
	}
	if r.TotalTime == 0 {
		r.TotalTime = r.PrepTime + r.CookTime
	}
	return nil
}
