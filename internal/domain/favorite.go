package domain

import "time"

// Favorite marks a recipe as favorited by a user. RecipeID holds the canonical
// key for new rows but may hold any historical alias for older ones.
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RecipeID  string    `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoriteRecipe is a favorited recipe as listed for its user.
type FavoriteRecipe struct {
	Recipe
	FavoriteID  string    `json:"favorite_id"`
	FavoritedAt time.Time `json:"favorited_at"`
}

// Toggle actions.
const (
	FavoriteAdded   = "added"
	FavoriteRemoved = "removed"
)

// ToggleResult reports the outcome of a favorite toggle.
type ToggleResult struct {
	IsFavorited bool   `json:"is_favorited"`
	Action      string `json:"action"`
}
