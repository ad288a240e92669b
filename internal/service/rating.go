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
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// Rating listing limits.
const (
	DefaultRatingsLimit = 50
	MaxRatingsLimit     = 100
)

// RatingPublisher publishes rating events.
type RatingPublisher interface {
	PublishRatingSubmitted(ctx context.Context, data event.RatingSubmittedData) error
}

// RatingService aggregates user ratings into each recipe's summary.
type RatingService struct {
	store     repository.RatingStore
	resolver  *RecipeResolver
	publisher RatingPublisher
	logger    *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewRatingService creates a rating service.
func NewRatingService(store repository.RatingStore, resolver *RecipeResolver, publisher RatingPublisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRatingInput holds the parameters of a rating submission.
type SubmitRatingInput struct {
	RecipeID string
	UserID   string
	Rating   int
}

// Submit records the user's rating and recomputes the recipe summary in one
// transaction. A repeat submission by the same user replaces their previous
// value; the last committed submission wins.
func (s *RatingService) Submit(ctx context.Context, in SubmitRatingInput) (*domain.RatingResult, error) {
	if strings.TrimSpace(in.RecipeID) == "" || strings.TrimSpace(in.UserID) == "" {
		ratingSubmissions.WithLabelValues(outcomeInvalid).Inc()
		return nil, apperrors.InvalidInput("recipe id and user id are required")
	}
	if !domain.ValidRating(in.Rating) {
		ratingSubmissions.WithLabelValues(outcomeInvalid).Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}

	ref, err := s.resolver.Resolve(ctx, in.RecipeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			ratingSubmissions.WithLabelValues(outcomeNotFound).Inc()
		} else {
			ratingSubmissions.WithLabelValues(outcomeError).Inc()
		}
		return nil, err
	}
	aliases := ref.Aliases()

	var (
		result   domain.RatingResult
		previous *int
	)
	err = s.store.WithinTx(ctx, func(tx repository.RatingTx) error {
		existing, err := tx.FindUserRatings(ctx, aliases, in.UserID)
		if err != nil {
			return err
		}
		summary, err := tx.GetSummary(ctx, ref.Key)
		if err != nil {
			return err
		}

		// Legacy rows stored under other aliases were each counted in the
		// summary. Keep the first and retract the rest.
		for i := 1; i < len(existing); i++ {
			if err := tx.DeleteRating(ctx, existing[i].ID); err != nil {
				return err
			}
			summary = summary.Retract(existing[i].Value)
		}

		now := s.now()
		var rating *domain.Rating
		previous = nil
		if len(existing) == 0 {
			rating = &domain.Rating{
				ID:        s.newID(),
				RecipeID:  ref.Key,
				UserID:    in.UserID,
				Value:     in.Rating,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.CreateRating(ctx, rating); err != nil {
				return err
			}
		} else {
			old := existing[0].Value
			previous = &old
			rating = &existing[0]
			rating.RecipeID = ref.Key
			rating.Value = in.Rating
			rating.UpdatedAt = now
			if err := tx.UpdateRating(ctx, rating); err != nil {
				return err
			}
		}

		next := summary.Apply(previous, in.Rating)
		if err := tx.SetSummary(ctx, ref.Key, next); err != nil {
			return err
		}

		result = domain.RatingResult{
			Success:     true,
			RatingID:    rating.ID,
			UserRating:  in.Rating,
			RecipeStats: next,
		}
		return nil
	})
	if err != nil {
		return nil, s.submitError(ctx, ref, in.UserID, err)
	}
	ratingSubmissions.WithLabelValues(outcomeSuccess).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishRatingSubmitted(ctx, event.RatingSubmittedData{
			RatingID:       result.RatingID,
			RecipeID:       ref.Key,
			UserID:         in.UserID,
			Rating:         in.Rating,
			PreviousRating: previous,
			Average:        result.RecipeStats.Average,
			Count:          result.RecipeStats.Count,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to publish rating.submitted event",
				slog.String("recipe_id", ref.Key),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "rating submitted",
		slog.String("recipe_id", ref.Key),
		slog.String("user_id", in.UserID),
		slog.Int("rating", in.Rating),
		slog.Float64("average", result.RecipeStats.Average),
		slog.Int("count", result.RecipeStats.Count),
	)
	return &result, nil
}

func (s *RatingService) submitError(ctx context.Context, ref *domain.RecipeRef, userID string, err error) error {
	// The recipe was deleted between resolution and the transaction.
	if errors.Is(err, apperrors.ErrNotFound) {
		ratingSubmissions.WithLabelValues(outcomeNotFound).Inc()
		return recipeNotFound(ref.Key)
	}

	outcome := outcomeError
	if errors.Is(err, database.ErrTxRetriesExhausted) {
		outcome = outcomeConflict
	}
	ratingSubmissions.WithLabelValues(outcome).Inc()

	s.logger.ErrorContext(ctx, "rating submission failed",
		slog.String("recipe_id", ref.Key),
		slog.String("user_id", userID),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
	return ratingSubmissionFailed(err)
}

// GetUserRating returns the user's rating value for the recipe, or nil when
// they never rated it or the recipe does not resolve.
func (s *RatingService) GetUserRating(ctx context.Context, recipeID, userID string) (*int, error) {
	if strings.TrimSpace(recipeID) == "" || strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidInput("recipe id and user id are required")
	}

	ref, err := s.resolver.Resolve(ctx, recipeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rating, err := s.store.GetUserRating(ctx, ref.Aliases(), userID)
	if err != nil {
		return nil, fmt.Errorf("get user rating: %w", err)
	}
	if rating == nil {
		return nil, nil
	}
	v := rating.Value
	return &v, nil
}

// ListRecipeRatings returns up to limit ratings for the recipe, newest
// first. Failures are logged and yield an empty list.
func (s *RatingService) ListRecipeRatings(ctx context.Context, recipeID string, limit int) []domain.Rating {
	if limit <= 0 {
		limit = DefaultRatingsLimit
	}
	if limit > MaxRatingsLimit {
		limit = MaxRatingsLimit
	}

	ref, err := s.resolver.Resolve(ctx, recipeID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to resolve recipe for ratings listing",
				slog.String("recipe_id", recipeID),
				slog.String("error", err.Error()),
			)
		}
		return []domain.Rating{}
	}

	ratings, err := s.store.ListByRecipe(ctx, ref.Aliases(), limit)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list recipe ratings",
			slog.String("recipe_id", ref.Key),
			slog.String("error", err.Error()),
		)
		return []domain.Rating{}
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	return ratings
}
