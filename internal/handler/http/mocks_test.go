package http

import (
	"context"
	"slices"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/repository"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockRecipeRepo struct {
	mock.Mock
}

func (m *mockRecipeRepo) FindRef(ctx context.Context, id domain.RecipeID) (*domain.RecipeRef, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecipeRef), args.Error(1)
}

func (m *mockRecipeRepo) GetByKey(ctx context.Context, key string) (*domain.Recipe, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepo) GetByKeys(ctx context.Context, keys []string) (map[string]*domain.Recipe, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepo) List(ctx context.Context, f domain.RecipeFilter) ([]domain.Recipe, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Recipe), args.Int(1), args.Error(2)
}

func (m *mockRecipeRepo) Popular(ctx context.Context, limit int) ([]domain.Recipe, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepo) Related(ctx context.Context, category, excludeKey string, limit int) ([]domain.Recipe, error) {
	args := m.Called(ctx, category, excludeKey, limit)
	return args.Get(0).([]domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepo) CountByCategory(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *mockRecipeRepo) Create(ctx context.Context, r *domain.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRecipeRepo) Update(ctx context.Context, r *domain.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRecipeRepo) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockRecipeRepo) BatchDelete(ctx context.Context, keys []string) (int, error) {
	args := m.Called(ctx, keys)
	return args.Int(0), args.Error(1)
}

type mockFavoriteRepo struct {
	mock.Mock
}

func (m *mockFavoriteRepo) FindByAliases(ctx context.Context, userID string, aliases []string) (*domain.Favorite, error) {
	args := m.Called(ctx, userID, aliases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Favorite), args.Error(1)
}

func (m *mockFavoriteRepo) Create(ctx context.Context, f *domain.Favorite) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockFavoriteRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockFavoriteRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.Favorite), args.Error(1)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, e *domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *mockEventRepo) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventRepo) Update(ctx context.Context, e *domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventRepo) Book(ctx context.Context, eventID, userID string) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventRepo) CancelBooking(ctx context.Context, eventID, userID string) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func (m *mockEventRepo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) UpdateRoles(ctx context.Context, ids []string, role string) (int, error) {
	args := m.Called(ctx, ids, role)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) CountByRole(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// ============================================================================
// Rating store fake
// ============================================================================

// fakeRatingStore serialises transactions under one lock. failWith makes
// every transaction fail with that error.
type fakeRatingStore struct {
	mu        sync.Mutex
	ratings   []domain.Rating
	summaries map[string]domain.RatingSummary
	failWith  error
}

func (s *fakeRatingStore) WithinTx(ctx context.Context, fn func(repository.RatingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	return fn(&fakeRatingTx{s: s})
}

func (s *fakeRatingStore) GetUserRating(_ context.Context, aliases []string, userID string) (*domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(aliases, userID), nil
}

func (s *fakeRatingStore) ListByRecipe(_ context.Context, aliases []string, limit int) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Rating
	for _, r := range s.ratings {
		if slices.Contains(aliases, r.RecipeID) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRatingStore) find(aliases []string, userID string) *domain.Rating {
	for _, r := range s.ratings {
		if r.UserID == userID && slices.Contains(aliases, r.RecipeID) {
			found := r
			return &found
		}
	}
	return nil
}

type fakeRatingTx struct {
	s *fakeRatingStore
}

func (t *fakeRatingTx) FindUserRatings(_ context.Context, aliases []string, userID string) ([]domain.Rating, error) {
	if r := t.s.find(aliases, userID); r != nil {
		return []domain.Rating{*r}, nil
	}
	return []domain.Rating{}, nil
}

func (t *fakeRatingTx) GetSummary(_ context.Context, key string) (domain.RatingSummary, error) {
	sum, ok := t.s.summaries[key]
	if !ok {
		return domain.RatingSummary{}, apperrors.NotFound("recipe", key)
	}
	return sum, nil
}

func (t *fakeRatingTx) CreateRating(_ context.Context, r *domain.Rating) error {
	t.s.ratings = append(t.s.ratings, *r)
	return nil
}

func (t *fakeRatingTx) UpdateRating(_ context.Context, r *domain.Rating) error {
	for i := range t.s.ratings {
		if t.s.ratings[i].ID == r.ID {
			t.s.ratings[i] = *r
		}
	}
	return nil
}

func (t *fakeRatingTx) DeleteRating(_ context.Context, id string) error {
	t.s.ratings = slices.DeleteFunc(t.s.ratings, func(r domain.Rating) bool { return r.ID == id })
	return nil
}

func (t *fakeRatingTx) SetSummary(_ context.Context, key string, sum domain.RatingSummary) error {
	t.s.summaries[key] = sum
	return nil
}
