package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azha0089/HealthyLife/internal/domain"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Import(ctx context.Context, rec *domain.Recipe) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) SyncLegacySequence(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

const catalogue = `[
  {
    "id": 1,
    "title": "Avocado Toast with Poached Egg",
    "category": "breakfast",
    "prepTime": 15,
    "cookTime": 10,
    "servings": 2,
    "calories": 320,
    "budget": "low",
    "difficulty": "easy",
    "tags": ["quick"],
    "rating": {"average": 4.8, "count": 156},
    "ingredients": [{"name": "Eggs", "amount": "2", "unit": "pieces"}],
    "instructions": ["Toast the bread."]
  },
  {"id": 2, "title": "Mystery", "category": "brunch"},
  {"id": 1, "title": "Avocado Toast again", "category": "breakfast"},
  {"id": 3, "title": "Lentil Soup", "category": "lunch"}
]`

func newImporter(store RecipeStore) *Importer {
	im := NewImporter(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	im.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return im
}

func TestLoad_DecodesLegacyFields(t *testing.T) {
	recipes, err := Load(strings.NewReader(catalogue))
	require.NoError(t, err)
	require.Len(t, recipes, 4)
	assert.Equal(t, 15, recipes[0].PrepTime)
	assert.Equal(t, 156, recipes[0].Rating.Count)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(strings.NewReader(`{"id": 1}`))
	assert.Error(t, err)
}

func TestKey_IsStable(t *testing.T) {
	assert.Equal(t, Key(42), Key(42))
	assert.NotEqual(t, Key(42), Key(43))
}

func TestRun_ImportsValidRecipes(t *testing.T) {
	recipes, err := Load(strings.NewReader(catalogue))
	require.NoError(t, err)

	store := new(mockStore)
	var imported []*domain.Recipe
	store.On("Import", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		imported = append(imported, args.Get(1).(*domain.Recipe))
	}).Return(true, nil).Once()
	store.On("Import", mock.Anything, mock.Anything).Return(false, nil).Once()
	store.On("SyncLegacySequence", mock.Anything).Return(nil).Once()

	res, err := newImporter(store).Run(context.Background(), recipes)
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 1, Existing: 2, Invalid: 1}, res)

	require.Len(t, imported, 1)
	toast := imported[0]
	assert.Equal(t, Key(1), toast.Key)
	require.NotNil(t, toast.LegacyID)
	assert.Equal(t, int64(1), *toast.LegacyID)
	assert.Equal(t, 25, toast.TotalTime)
	assert.Equal(t, domain.RatingSummary{Average: 4.8, Count: 156, Total: 749}, toast.Rating)
	assert.Equal(t, 320, toast.Details.Nutrition.Calories)
	store.AssertExpectations(t)
}

func TestRun_NoRatingsGivesEmptySummary(t *testing.T) {
	store := new(mockStore)
	store.On("Import", mock.Anything, mock.MatchedBy(func(r *domain.Recipe) bool {
		return r.Rating == domain.RatingSummary{} && r.Tags != nil
	})).Return(true, nil).Once()
	store.On("SyncLegacySequence", mock.Anything).Return(nil).Once()

	_, err := newImporter(store).Run(context.Background(), []LegacyRecipe{
		{ID: 9, Title: "Plain Rice", Category: domain.CategoryDinner},
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRun_StoreError(t *testing.T) {
	store := new(mockStore)
	store.On("Import", mock.Anything, mock.Anything).Return(false, errors.New("connection reset")).Once()

	_, err := newImporter(store).Run(context.Background(), []LegacyRecipe{
		{ID: 9, Title: "Plain Rice", Category: domain.CategoryDinner},
	})
	assert.ErrorContains(t, err, "import legacy recipe 9")
	store.AssertNotCalled(t, "SyncLegacySequence", mock.Anything)
}
