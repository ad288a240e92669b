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
)

// Favorite listing limits.
const (
	DefaultFavoritesLimit = 50
	MaxFavoritesLimit     = 200
)

// FavoriteService manages users' favorite recipes. Stored favorites may carry
// any historical alias of a recipe, so every lookup goes through the alias set.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	recipes   repository.RecipeRepository
	resolver  *RecipeResolver
	producer  *event.Producer
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewFavoriteService creates a favorite service.
func NewFavoriteService(
	favorites repository.FavoriteRepository,
	recipes repository.RecipeRepository,
	resolver *RecipeResolver,
	producer *event.Producer,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		recipes:   recipes,
		resolver:  resolver,
		producer:  producer,
		logger:    logger,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add favorites the recipe for the user under its canonical key.
func (s *FavoriteService) Add(ctx context.Context, userID, recipeID string) (*domain.Favorite, error) {
	if err := requireIDs(userID, recipeID); err != nil {
		return nil, err
	}

	ref, err := s.resolver.Resolve(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	existing, err := s.favorites.FindByAliases(ctx, userID, ref.Aliases())
	if err != nil {
		return nil, fmt.Errorf("find favorite: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("favorite", "recipe_id", ref.Key)
	}

	fav := &domain.Favorite{
		ID:        s.newID(),
		UserID:    userID,
		RecipeID:  ref.Key,
		CreatedAt: s.now(),
	}
	if err := s.favorites.Create(ctx, fav); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create favorite: %w", err)
	}

	if err := s.producer.PublishFavoriteAdded(ctx, userID, ref.Key); err != nil {
		s.logger.WarnContext(ctx, "failed to publish favorite.added event",
			slog.String("recipe_id", ref.Key),
			slog.String("error", err.Error()),
		)
	}
	return fav, nil
}

// Remove deletes the user's favorite for the recipe under whichever alias it
// was stored.
func (s *FavoriteService) Remove(ctx context.Context, userID, recipeID string) error {
	if err := requireIDs(userID, recipeID); err != nil {
		return err
	}

	fav, err := s.find(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if fav == nil {
		return apperrors.NotFound("favorite", recipeID)
	}

	if err := s.favorites.Delete(ctx, fav.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete favorite: %w", err)
	}

	if err := s.producer.PublishFavoriteRemoved(ctx, userID, fav.RecipeID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish favorite.removed event",
			slog.String("recipe_id", fav.RecipeID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// IsFavorited reports whether the user has favorited the recipe.
func (s *FavoriteService) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	if err := requireIDs(userID, recipeID); err != nil {
		return false, err
	}
	fav, err := s.find(ctx, userID, recipeID)
	if err != nil {
		return false, err
	}
	return fav != nil, nil
}

// Toggle removes the favorite when present and adds it otherwise.
func (s *FavoriteService) Toggle(ctx context.Context, userID, recipeID string) (*domain.ToggleResult, error) {
	favorited, err := s.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if favorited {
		if err := s.Remove(ctx, userID, recipeID); err != nil {
			return nil, err
		}
		return &domain.ToggleResult{IsFavorited: false, Action: domain.FavoriteRemoved}, nil
	}
	if _, err := s.Add(ctx, userID, recipeID); err != nil {
		return nil, err
	}
	return &domain.ToggleResult{IsFavorited: true, Action: domain.FavoriteAdded}, nil
}

// List returns the user's favorited recipes, newest first. Favorites whose
// recipe no longer exists are skipped.
func (s *FavoriteService) List(ctx context.Context, userID string, limit int) ([]domain.FavoriteRecipe, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if limit <= 0 {
		limit = DefaultFavoritesLimit
	}
	if limit > MaxFavoritesLimit {
		limit = MaxFavoritesLimit
	}

	favs, err := s.favorites.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	keyOf := make(map[string]string, len(favs))
	keys := make([]string, 0, len(favs))
	for _, f := range favs {
		ref, err := s.resolver.Resolve(ctx, f.RecipeID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "favorite references missing recipe",
					slog.String("favorite_id", f.ID),
					slog.String("recipe_id", f.RecipeID),
				)
				continue
			}
			return nil, err
		}
		keyOf[f.ID] = ref.Key
		keys = append(keys, ref.Key)
	}

	out := make([]domain.FavoriteRecipe, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	recipes, err := s.recipes.GetByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load favorite recipes: %w", err)
	}

	for _, f := range favs {
		key, ok := keyOf[f.ID]
		if !ok {
			continue
		}
		recipe, ok := recipes[key]
		if !ok {
			s.logger.WarnContext(ctx, "favorite recipe deleted during listing",
				slog.String("favorite_id", f.ID),
				slog.String("recipe_id", key),
			)
			continue
		}
		out = append(out, domain.FavoriteRecipe{
			Recipe:      *recipe,
			FavoriteID:  f.ID,
			FavoritedAt: f.CreatedAt,
		})
	}
	return out, nil
}

func (s *FavoriteService) find(ctx context.Context, userID, recipeID string) (*domain.Favorite, error) {
	aliases, err := s.resolver.Aliases(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	fav, err := s.favorites.FindByAliases(ctx, userID, aliases)
	if err != nil {
		return nil, fmt.Errorf("find favorite: %w", err)
	}
	return fav, nil
}

func requireIDs(userID, recipeID string) error {
	if userID == "" || strings.TrimSpace(recipeID) == "" {
		return apperrors.InvalidInput("recipe id and user id are required")
	}
	return nil
}
