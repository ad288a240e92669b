package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/event"
	"github.com/azha0089/HealthyLife/internal/notify"
	pkgkafka "github.com/azha0089/HealthyLife/pkg/kafka"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock Recipe Repository ---

type mockRecipeRepository struct {
	mock.Mock
}

func (m *mockRecipeRepository) FindRef(ctx context.Context, id domain.RecipeID) (*domain.RecipeRef, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecipeRef), args.Error(1)
}

func (m *mockRecipeRepository) GetByKey(ctx context.Context, key string) (*domain.Recipe, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) GetByKeys(ctx context.Context, keys []string) (map[string]*domain.Recipe, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) List(ctx context.Context, filter domain.RecipeFilter) ([]domain.Recipe, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Recipe), args.Int(1), args.Error(2)
}

func (m *mockRecipeRepository) Popular(ctx context.Context, limit int) ([]domain.Recipe, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) Related(ctx context.Context, category, excludeKey string, limit int) ([]domain.Recipe, error) {
	args := m.Called(ctx, category, excludeKey, limit)
	return args.Get(0).([]domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *mockRecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return m.Called(ctx, recipe).Error(0)
}

func (m *mockRecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	return m.Called(ctx, recipe).Error(0)
}

func (m *mockRecipeRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockRecipeRepository) BatchDelete(ctx context.Context, keys []string) (int, error) {
	args := m.Called(ctx, keys)
	return args.Int(0), args.Error(1)
}

// --- Mock caches ---

type mockRefCache struct {
	mock.Mock
}

func (m *mockRefCache) Get(ctx context.Context, raw string) (*domain.RecipeRef, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecipeRef), args.Error(1)
}

func (m *mockRefCache) Set(ctx context.Context, raw string, ref *domain.RecipeRef) error {
	return m.Called(ctx, raw, ref).Error(0)
}

func (m *mockRefCache) Evict(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockPopularCache struct {
	mock.Mock
}

func (m *mockPopularCache) Get(ctx context.Context, limit int) ([]domain.Recipe, bool, error) {
	args := m.Called(ctx, limit)
	var recipes []domain.Recipe
	if v := args.Get(0); v != nil {
		recipes = v.([]domain.Recipe)
	}
	return recipes, args.Bool(1), args.Error(2)
}

func (m *mockPopularCache) Set(ctx context.Context, limit int, recipes []domain.Recipe) error {
	return m.Called(ctx, limit, recipes).Error(0)
}

func (m *mockPopularCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Favorite Repository ---

type mockFavoriteRepository struct {
	mock.Mock
}

func (m *mockFavoriteRepository) FindByAliases(ctx context.Context, userID string, aliases []string) (*domain.Favorite, error) {
	args := m.Called(ctx, userID, aliases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Favorite), args.Error(1)
}

func (m *mockFavoriteRepository) Create(ctx context.Context, fav *domain.Favorite) error {
	return m.Called(ctx, fav).Error(0)
}

func (m *mockFavoriteRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockFavoriteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.Favorite), args.Error(1)
}

// --- Mock Event Repository ---

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Create(ctx context.Context, e *domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *mockEventRepository) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventRepository) Update(ctx context.Context, e *domain.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockEventRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventRepository) Book(ctx context.Context, eventID, userID string) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEventRepository) CancelBooking(ctx context.Context, eventID, userID string) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func (m *mockEventRepository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) UpdateRoles(ctx context.Context, ids []string, role string) (int, error) {
	args := m.Called(ctx, ids, role)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// --- Mock Mailer ---

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// --- Recording publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func newProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, testLogger())
}

func int64Ptr(n int64) *int64 { return &n }
func strPtr(s string) *string { return &s }
