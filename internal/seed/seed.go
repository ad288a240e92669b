// Package seed imports legacy recipe catalogues, keeping their numeric ids
// and rating summaries so old links and ratings keep resolving.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/validator"
)

// keyNamespace makes imported doc_ids stable across runs.
var keyNamespace = uuid.MustParse("6f1c2a5e-8d47-4b1a-9c3e-2f0d7b9a4e61")

// RecipeStore is the storage the importer writes to.
type RecipeStore interface {
	Import(ctx context.Context, rec *domain.Recipe) (bool, error)
	SyncLegacySequence(ctx context.Context) error
}

// LegacyRating is the rating summary carried by a legacy recipe.
type LegacyRating struct {
	Average float64 `json:"average" validate:"gte=0,lte=5"`
	Count   int     `json:"count" validate:"gte=0"`
}

// LegacyRecipe is one entry of a legacy catalogue file.
type LegacyRecipe struct {
	ID           int64               `json:"id" validate:"required,gt=0"`
	Title        string              `json:"title" validate:"required,max=200"`
	Description  string              `json:"description"`
	Category     string              `json:"category" validate:"required,oneof=breakfast lunch dinner dessert vegan"`
	Image        string              `json:"image"`
	PrepTime     int                 `json:"prepTime" validate:"gte=0"`
	CookTime     int                 `json:"cookTime" validate:"gte=0"`
	TotalTime    int                 `json:"totalTime" validate:"gte=0"`
	Servings     int                 `json:"servings" validate:"gte=0"`
	Calories     int                 `json:"calories" validate:"gte=0"`
	Budget       string              `json:"budget" validate:"omitempty,oneof=low medium high"`
	Difficulty   string              `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags         []string            `json:"tags"`
	Rating       LegacyRating        `json:"rating"`
	Ingredients  []domain.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	Nutrition    domain.Nutrition    `json:"nutrition"`
	Tips         []string            `json:"tips"`
}

// Load decodes a JSON array of legacy recipes.
func Load(r io.Reader) ([]LegacyRecipe, error) {
	var recipes []LegacyRecipe
	if err := json.NewDecoder(r).Decode(&recipes); err != nil {
		return nil, fmt.Errorf("decode legacy recipes: %w", err)
	}
	return recipes, nil
}

// Key returns the doc_id an imported legacy recipe is stored under.
func Key(legacyID int64) string {
	return uuid.NewSHA1(keyNamespace, []byte(strconv.FormatInt(legacyID, 10))).String()
}

func (l LegacyRecipe) toRecipe(now time.Time) *domain.Recipe {
	id := l.ID
	total := l.TotalTime
	if total == 0 {
		total = l.PrepTime + l.CookTime
	}
	rec := &domain.Recipe{
		Key:         Key(l.ID),
		LegacyID:    &id,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		ImageURL:    l.Image,
		PrepTime:    l.PrepTime,
		CookTime:    l.CookTime,
		TotalTime:   total,
		Servings:    l.Servings,
		Calories:    l.Calories,
		Budget:      l.Budget,
		Difficulty:  l.Difficulty,
		Tags:        l.Tags,
		Details: domain.RecipeDetails{
			Ingredients:  l.Ingredients,
			Instructions: l.Instructions,
			Tips:         l.Tips,
			Nutrition:    l.Nutrition,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if l.Rating.Count > 0 {
		rec.Rating = domain.RatingSummary{
			Average: domain.Round2(l.Rating.Average),
			Count:   l.Rating.Count,
			Total:   int64(math.Round(l.Rating.Average * float64(l.Rating.Count))),
		}
	}
	rec.Normalize()
	return rec
}

// Result counts what an import did.
type Result struct {
	Imported int `json:"imported"`
	Existing int `json:"existing"`
	Invalid  int `json:"invalid"`
}

// Importer writes legacy recipes to a RecipeStore.
type Importer struct {
	store  RecipeStore
	logger *slog.Logger
	now    func() time.Time
}

// NewImporter creates an importer writing to store.
func NewImporter(store RecipeStore, logger *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run imports every valid recipe. Recipes already present are left untouched,
// so running the same catalogue twice is harmless.
func (im *Importer) Run(ctx context.Context, recipes []LegacyRecipe) (Result, error) {
	var res Result
	seen := make(map[int64]struct{}, len(recipes))

	for i := range recipes {
		l := recipes[i]
		if err := validator.Validate(l); err != nil {
			res.Invalid++
			im.logger.WarnContext(ctx, "skipping invalid legacy recipe",
				slog.Int64("legacy_id", l.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if _, dup := seen[l.ID]; dup {
			res.Existing++
			continue
		}
		seen[l.ID] = struct{}{}

		created, err := im.store.Import(ctx, l.toRecipe(im.now()))
		if err != nil {
			return res, fmt.Errorf("import legacy recipe %d: %w", l.ID, err)
		}
		if created {
			res.Imported++
		} else {
			res.Existing++
		}
	}

	if err := im.store.SyncLegacySequence(ctx); err != nil {
		return res, err
	}
	im.logger.InfoContext(ctx, "legacy recipes imported",
		slog.Int("imported", res.Imported),
		slog.Int("existing", res.Existing),
		slog.Int("invalid", res.Invalid),
	)
	return res, nil
}
