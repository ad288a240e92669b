package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/repository"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// RecipeResolver maps a caller-supplied recipe identifier, canonical or
// legacy, to the recipe's canonical identity.
type RecipeResolver struct {
	recipes repository.RecipeRepository
	cache   repository.RecipeRefCache
	logger  *slog.Logger
}

// NewRecipeResolver creates a resolver. cache may be nil.
func NewRecipeResolver(recipes repository.RecipeRepository, cache repository.RecipeRefCache, logger *slog.Logger) *RecipeResolver {
	return &RecipeResolver{recipes: recipes, cache: cache, logger: logger}
}

// Resolve tries raw as a canonical key and then as a legacy id. A miss
// returns a RECIPE_NOT_FOUND error wrapping apperrors.ErrNotFound.
func (r *RecipeResolver) Resolve(ctx context.Context, raw string) (*domain.RecipeRef, error) {
	raw = strings.TrimSpace(raw)
	ids := domain.ParseRecipeID(raw)
	if len(ids) == 0 {
		return nil, recipeNotFound(raw)
	}

	if ref := r.cached(ctx, raw); ref != nil {
		return ref, nil
	}

	for _, id := range ids {
		ref, err := r.recipes.FindRef(ctx, id)
		if err == nil {
			r.remember(ctx, raw, ref)
			return ref, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("resolve recipe %q as %s: %w", raw, id.Kind, err)
		}
	}
	return nil, recipeNotFound(raw)
}

// Aliases resolves raw and returns every alias of the recipe. When raw no
// longer resolves it falls back to raw and its prefixed twin so rows left
// behind by a deleted recipe can still be found.
func (r *RecipeResolver) Aliases(ctx context.Context, raw string) ([]string, error) {
	ref, err := r.Resolve(ctx, raw)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.RawAliases(strings.TrimSpace(raw)), nil
		}
		return nil, err
	}
	return ref.Aliases(), nil
}

// Evict drops cached resolutions to key.
func (r *RecipeResolver) Evict(ctx context.Context, key string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Evict(ctx, key); err != nil {
		r.logger.WarnContext(ctx, "failed to evict recipe refs",
			slog.String("recipe_id", key),
			slog.String("error", err.Error()),
		)
	}
}

func (r *RecipeResolver) cached(ctx context.Context, raw string) *domain.RecipeRef {
	if r.cache == nil {
		return nil
	}
	ref, err := r.cache.Get(ctx, raw)
	if err != nil {
		r.logger.WarnContext(ctx, "recipe ref cache read failed",
			slog.String("raw_id", raw),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return ref
}

func (r *RecipeResolver) remember(ctx context.Context, raw string, ref *domain.RecipeRef) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, raw, ref); err != nil {
		r.logger.WarnContext(ctx, "recipe ref cache write failed",
			slog.String("raw_id", raw),
			slog.String("error", err.Error()),
		)
	}
}
