package repository

import (
	"context"

	"github.com/azha0089/HealthyLife/internal/domain"
)

// RecipeRepository defines recipe persistence. Lookups that miss return an
// error wrapping apperrors.ErrNotFound.
type RecipeRepository interface {
	// FindRef looks a recipe up by one identifier interpretation.
	FindRef(ctx context.Context, id domain.RecipeID) (*domain.RecipeRef, error)

	// GetByKey returns the recipe stored under a canonical key.
	GetByKey(ctx context.Context, key string) (*domain.Recipe, error)

	// GetByKeys returns the recipes found among keys, keyed by canonical key.
	GetByKeys(ctx context.Context, keys []string) (map[string]*domain.Recipe, error)

	// List returns one page of recipes matching filter, newest legacy id
	// first, and the total number of matches.
	List(ctx context.Context, filter domain.RecipeFilter) ([]domain.Recipe, int, error)

	// Popular returns the highest rated recipes.
	Popular(ctx context.Context, limit int) ([]domain.Recipe, error)

	// Related returns recipes in category other than excludeKey.
	Related(ctx context.Context, category, excludeKey string, limit int) ([]domain.Recipe, error)

	// CountByCategory returns the number of recipes per category.
	CountByCategory(ctx context.Context) (map[string]int, error)

	// Create stores a new recipe, assigning the next legacy id.
	Create(ctx context.Context, recipe *domain.Recipe) error

	// Update rewrites the authored fields of a recipe. The rating summary
	// columns are never written.
	Update(ctx context.Context, recipe *domain.Recipe) error

	// Delete removes a recipe by canonical key.
	Delete(ctx context.Context, key string) error

	// BatchDelete removes all keys in one transaction, returning how many
	// rows were deleted.
	BatchDelete(ctx context.Context, keys []string) (int, error)
}

// RecipeRefCache caches raw identifier resolutions.
type RecipeRefCache interface {
	// Get returns the cached ref for raw, or nil on a miss.
	Get(ctx context.Context, raw string) (*domain.RecipeRef, error)
	Set(ctx context.Context, raw string, ref *domain.RecipeRef) error
	// Evict drops every cached raw value that resolved to key.
	Evict(ctx context.Context, key string) error
}

// PopularRecipeCache caches the popular recipes listing.
type PopularRecipeCache interface {
	// Get returns the cached list for limit; ok is false on a miss.
	Get(ctx context.Context, limit int) (recipes []domain.Recipe, ok bool, err error)
	Set(ctx context.Context, limit int, recipes []domain.Recipe) error
	Invalidate(ctx context.Context) error
}

// RatingStore persists ratings and the recipe rating summary.
type RatingStore interface {
	// WithinTx runs fn in one serializable transaction. fn may be invoked
	// more than once when the store detects a conflict, so it must not have
	// side effects outside the transaction.
	WithinTx(ctx context.Context, fn func(tx RatingTx) error) error

	// GetUserRating returns the user's rating stored under any of aliases,
	// or nil when there is none. Order of preference is as in
	// RatingTx.FindUserRatings.
	GetUserRating(ctx context.Context, aliases []string, userID string) (*domain.Rating, error)

	// ListByRecipe returns ratings stored under any of aliases, newest first.
	ListByRecipe(ctx context.Context, aliases []string, limit int) ([]domain.Rating, error)
}

// RatingTx is the transactional view of a RatingStore.
type RatingTx interface {
	// FindUserRatings locks and returns the user's ratings under any of
	// aliases. A row on aliases[0] comes first, the rest newest first.
	// Legacy data can hold more than one row per user and recipe.
	FindUserRatings(ctx context.Context, aliases []string, userID string) ([]domain.Rating, error)

	// GetSummary locks and returns the recipe's rating summary.
	GetSummary(ctx context.Context, recipeKey string) (domain.RatingSummary, error)

	CreateRating(ctx context.Context, rating *domain.Rating) error

	// UpdateRating rewrites the value, timestamp and recipe id of an
	// existing rating.
	UpdateRating(ctx context.Context, rating *domain.Rating) error

	DeleteRating(ctx context.Context, id string) error

	// SetSummary writes only the rating summary columns of the recipe.
	SetSummary(ctx context.Context, recipeKey string, summary domain.RatingSummary) error
}

// FavoriteRepository defines favorite persistence.
type FavoriteRepository interface {
	// FindByAliases returns the user's first favorite under any of aliases,
	// or nil when there is none.
	FindByAliases(ctx context.Context, userID string, aliases []string) (*domain.Favorite, error)
	Create(ctx context.Context, fav *domain.Favorite) error
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's favorites, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Favorite, error)
}

// EventRepository defines community event and booking persistence.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	// Update rewrites the descriptive fields of an event.
	Update(ctx context.Context, event *domain.Event) error
	UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error
	Delete(ctx context.Context, id string) error

	// Book records a booking and bumps the event's counter in one
	// transaction. created is false when the booking already existed.
	Book(ctx context.Context, eventID, userID string) (created bool, err error)
	// CancelBooking removes a booking and decrements the counter.
	CancelBooking(ctx context.Context, eventID, userID string) error
	ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

// UserRepository defines user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users, optionally restricted to one role.
	List(ctx context.Context, role string) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// UpdateRoles sets role on every listed user, returning how many changed.
	UpdateRoles(ctx context.Context, ids []string, role string) (int, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}
