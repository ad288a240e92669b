package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/repository"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

var errSerialization = errors.New("could not serialize access")

// memRatingStore runs every transaction under one lock against a private
// copy of the state, so committed histories are serial. conflicts aborts
// that many otherwise successful attempts to exercise the retry path.
type memRatingStore struct {
	mu          sync.Mutex
	ratings     []domain.Rating
	summaries   map[string]domain.RatingSummary
	conflicts   int
	maxAttempts int
	attempts    int
	readErr     error
}

func newMemRatingStore(recipeKeys ...string) *memRatingStore {
	s := &memRatingStore{summaries: make(map[string]domain.RatingSummary), maxAttempts: 5}
	for _, k := range recipeKeys {
		s.summaries[k] = domain.RatingSummary{}
	}
	return s
}

func (s *memRatingStore) WithinTx(ctx context.Context, fn func(repository.RatingTx) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		s.attempts++
		tx := &memRatingTx{
			ratings:   slices.Clone(s.ratings),
			summaries: make(map[string]domain.RatingSummary, len(s.summaries)),
		}
		for k, v := range s.summaries {
			tx.summaries[k] = v
		}

		err := fn(tx)
		if err == nil && s.conflicts > 0 {
			s.conflicts--
			err = errSerialization
		}
		if err == nil {
			s.ratings = tx.ratings
			s.summaries = tx.summaries
		}
		s.mu.Unlock()

		switch {
		case err == nil:
			return nil
		case !errors.Is(err, errSerialization):
			return err
		case attempt >= s.maxAttempts:
			return fmt.Errorf("%w: %w", database.ErrTxRetriesExhausted, err)
		}
	}
}

func (s *memRatingStore) GetUserRating(_ context.Context, aliases []string, userID string) (*domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	if found := findMemRatings(s.ratings, aliases, userID); len(found) > 0 {
		return &found[0], nil
	}
	return nil, nil
}

func (s *memRatingStore) ListByRecipe(_ context.Context, aliases []string, limit int) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []domain.Rating
	for _, r := range s.ratings {
		if slices.Contains(aliases, r.RecipeID) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memRatingStore) summary(key string) domain.RatingSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries[key]
}

func (s *memRatingStore) rows() []domain.Rating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ratings)
}

type memRatingTx struct {
	ratings   []domain.Rating
	summaries map[string]domain.RatingSummary
}

func (t *memRatingTx) FindUserRatings(_ context.Context, aliases []string, userID string) ([]domain.Rating, error) {
	return findMemRatings(t.ratings, aliases, userID), nil
}

func (t *memRatingTx) GetSummary(_ context.Context, key string) (domain.RatingSummary, error) {
	s, ok := t.summaries[key]
	if !ok {
		return domain.RatingSummary{}, apperrors.NotFound("recipe", key)
	}
	return s, nil
}

// pairTaken mirrors the (recipe_id, user_id) unique index. Postgres reports
// a violation as 23505, which the store reruns like a serialization failure.
func (t *memRatingTx) pairTaken(r *domain.Rating) bool {
	for _, existing := range t.ratings {
		if existing.ID != r.ID && existing.RecipeID == r.RecipeID && existing.UserID == r.UserID {
			return true
		}
	}
	return false
}

func (t *memRatingTx) CreateRating(_ context.Context, r *domain.Rating) error {
	if t.pairTaken(r) {
		return errSerialization
	}
	t.ratings = append(t.ratings, *r)
	return nil
}

func (t *memRatingTx) UpdateRating(_ context.Context, r *domain.Rating) error {
	if t.pairTaken(r) {
		return errSerialization
	}
	for i := range t.ratings {
		if t.ratings[i].ID == r.ID {
			t.ratings[i] = *r
			return nil
		}
	}
	return apperrors.NotFound("rating", r.ID)
}

func (t *memRatingTx) DeleteRating(_ context.Context, id string) error {
	for i := range t.ratings {
		if t.ratings[i].ID == id {
			t.ratings = slices.Delete(t.ratings, i, i+1)
			return nil
		}
	}
	return apperrors.NotFound("rating", id)
}

func (t *memRatingTx) SetSummary(_ context.Context, key string, s domain.RatingSummary) error {
	if _, ok := t.summaries[key]; !ok {
		return apperrors.NotFound("recipe", key)
	}
	t.summaries[key] = s
	return nil
}

// findMemRatings orders like the SQL store: a row on aliases[0] first, then
// newest first.
func findMemRatings(ratings []domain.Rating, aliases []string, userID string) []domain.Rating {
	found := []domain.Rating{}
	for _, r := range ratings {
		if r.UserID == userID && slices.Contains(aliases, r.RecipeID) {
			found = append(found, r)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		ci, cj := found[i].RecipeID == aliases[0], found[j].RecipeID == aliases[0]
		if ci != cj {
			return ci
		}
		return found[i].UpdatedAt.After(found[j].UpdatedAt)
	})
	return found
}
