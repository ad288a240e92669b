package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// FavoriteRepository implements repository.FavoriteRepository.
type FavoriteRepository struct {
	db database.DBTX
}

// NewFavoriteRepository creates a PostgreSQL-backed favorite repository.
func NewFavoriteRepository(db database.DBTX) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// FindByAliases returns the oldest favorite the user holds under any alias.
func (r *FavoriteRepository) FindByAliases(ctx context.Context, userID string, aliases []string) (*domain.Favorite, error) {
	query := `
		SELECT id, user_id, recipe_id, created_at
		FROM favorites
		WHERE user_id = $1 AND recipe_id = ANY($2)
		ORDER BY created_at
		LIMIT 1`

	var f domain.Favorite
	err := r.db.QueryRow(ctx, query, userID, aliases).Scan(&f.ID, &f.UserID, &f.RecipeID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find favorite: %w", err)
	}
	return &f, nil
}

// Create inserts a favorite.
func (r *FavoriteRepository) Create(ctx context.Context, f *domain.Favorite) error {
	query := `INSERT INTO favorites (id, user_id, recipe_id, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query, f.ID, f.UserID, f.RecipeID, f.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("favorite", "recipe_id", f.RecipeID)
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// Delete removes a favorite by id.
func (r *FavoriteRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("favorite", id)
	}
	return nil
}

// ListByUser returns the user's favorites, newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	query := `
		SELECT id, user_id, recipe_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []domain.Favorite{}
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.RecipeID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorite rows: %w", err)
	}
	return favorites, nil
}
