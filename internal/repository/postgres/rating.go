package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/repository"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

const ratingColumns = `id, recipe_id, user_id, rating, created_at, updated_at`

// RatingRepository implements repository.RatingStore. Transactions run under
// policy, which should be SERIALIZABLE with retries.
type RatingRepository struct {
	db     database.DBTX
	policy database.TxPolicy
}

// NewRatingRepository creates a PostgreSQL-backed rating store.
func NewRatingRepository(db database.DBTX, policy database.TxPolicy) *RatingRepository {
	return &RatingRepository{db: db, policy: policy}
}

// WithinTx runs fn in a transaction, rerunning it on serialization
// failures, deadlocks and rating-pair unique violations.
func (r *RatingRepository) WithinTx(ctx context.Context, fn func(repository.RatingTx) error) error {
	return database.RunInTx(ctx, r.db, r.policy, func(tx pgx.Tx) error {
		return fn(&ratingTx{q: tx})
	})
}

// GetUserRating reads the user's rating outside any transaction.
func (r *RatingRepository) GetUserRating(ctx context.Context, aliases []string, userID string) (*domain.Rating, error) {
	if len(aliases) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ratingColumns + ` FROM ratings
		WHERE recipe_id = ANY($1) AND user_id = $2
		ORDER BY recipe_id = $3 DESC, updated_at DESC
		LIMIT 1`

	var rt domain.Rating
	err := r.db.QueryRow(ctx, query, aliases, userID, aliases[0]).Scan(
		&rt.ID, &rt.RecipeID, &rt.UserID, &rt.Value, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rt, nil
}

// ListByRecipe lists ratings newest first.
func (r *RatingRepository) ListByRecipe(ctx context.Context, aliases []string, limit int) ([]domain.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings
		WHERE recipe_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, aliases, limit)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return scanRatings(rows)
}

// ratingTx implements repository.RatingTx on a pgx transaction.
type ratingTx struct {
	q database.Querier
}

func (t *ratingTx) FindUserRatings(ctx context.Context, aliases []string, userID string) ([]domain.Rating, error) {
	if len(aliases) == 0 {
		return []domain.Rating{}, nil
	}
	query := `SELECT ` + ratingColumns + ` FROM ratings
		WHERE recipe_id = ANY($1) AND user_id = $2
		ORDER BY recipe_id = $3 DESC, updated_at DESC
		FOR UPDATE`

	rows, err := t.q.Query(ctx, query, aliases, userID, aliases[0])
	if err != nil {
		return nil, fmt.Errorf("find user ratings: %w", err)
	}
	return scanRatings(rows)
}

func (t *ratingTx) GetSummary(ctx context.Context, recipeKey string) (s domain.RatingSummary, err error) {
	query := `SELECT rating_average, rating_count, rating_total FROM recipe WHERE doc_id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "GetRatingSummary", query)
	defer func() { end(err) }()

	if err := t.q.QueryRow(ctx, query, recipeKey).Scan(&s.Average, &s.Count, &s.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, apperrors.NotFound("recipe", recipeKey)
		}
		return s, fmt.Errorf("get rating summary: %w", err)
	}
	return s, nil
}

func (t *ratingTx) CreateRating(ctx context.Context, rt *domain.Rating) error {
	query := `INSERT INTO ratings (` + ratingColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := t.q.Exec(ctx, query, rt.ID, rt.RecipeID, rt.UserID, rt.Value, rt.CreatedAt, rt.UpdatedAt); err != nil {
		// 23505 means a concurrent first submission won; RunInTx reruns.
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (t *ratingTx) UpdateRating(ctx context.Context, rt *domain.Rating) error {
	query := `UPDATE ratings SET recipe_id = $1, rating = $2, updated_at = $3 WHERE id = $4`

	ct, err := t.q.Exec(ctx, query, rt.RecipeID, rt.Value, rt.UpdatedAt, rt.ID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("rating", rt.ID)
	}
	return nil
}

func (t *ratingTx) SetSummary(ctx context.Context, recipeKey string, s domain.RatingSummary) (err error) {
	query := `UPDATE recipe SET rating_average = $1, rating_count = $2, rating_total = $3 WHERE doc_id = $4`

	ctx, end := database.TraceQuery(ctx, "SetRatingSummary", query)
	defer func() { end(err) }()

	ct, err := t.q.Exec(ctx, query, s.Average, s.Count, s.Total, recipeKey)
	if err != nil {
		return fmt.Errorf("set rating summary: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("recipe", recipeKey)
	}
	return nil
}

func (t *ratingTx) DeleteRating(ctx context.Context, id string) error {
	ct, err := t.q.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("rating", id)
	}
	return nil
}

func scanRatings(rows pgx.Rows) ([]domain.Rating, error) {
	defer rows.Close()

	ratings := []domain.Rating{}
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.RecipeID, &rt.UserID, &rt.Value, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}
	return ratings, nil
}
