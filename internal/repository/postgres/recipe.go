package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

const recipeColumns = `doc_id, legacy_id, title, description, category, image_url,
	prep_time, cook_time, total_time, servings, calories, budget, difficulty,
	tags, details, rating_average, rating_count, rating_total, created_at, updated_at`

// RecipeRepository implements repository.RecipeRepository.
type RecipeRepository struct {
	db database.DBTX
}

// NewRecipeRepository creates a PostgreSQL-backed recipe repository.
func NewRecipeRepository(db database.DBTX) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// FindRef resolves one identifier interpretation. Canonical ids are primary
// key reads; legacy ids use the unique legacy_id index.
func (r *RecipeRepository) FindRef(ctx context.Context, id domain.RecipeID) (ref *domain.RecipeRef, err error) {
	var (
		query string
		arg   any
	)
	switch id.Kind {
	case domain.Canonical:
		query, arg = `SELECT doc_id, legacy_id FROM recipe WHERE doc_id = $1`, id.Key
	case domain.Legacy:
		query, arg = `SELECT doc_id, legacy_id FROM recipe WHERE legacy_id = $1 LIMIT 1`, id.Number
	default:
		return nil, apperrors.InvalidInput("unknown recipe id kind")
	}

	ctx, end := database.TraceQuery(ctx, "FindRecipeRef", query)
	defer func() { end(err) }()

	var out domain.RecipeRef
	if err := r.db.QueryRow(ctx, query, arg).Scan(&out.Key, &out.LegacyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("recipe", id.String())
		}
		return nil, fmt.Errorf("find recipe ref: %w", err)
	}
	return &out, nil
}

// GetByKey retrieves a recipe by canonical key.
func (r *RecipeRepository) GetByKey(ctx context.Context, key string) (*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipe WHERE doc_id = $1`

	rec, err := scanRecipe(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("recipe", key)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return rec, nil
}

// GetByKeys returns the recipes found among keys.
func (r *RecipeRepository) GetByKeys(ctx context.Context, keys []string) (map[string]*domain.Recipe, error) {
	out := make(map[string]*domain.Recipe, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+recipeColumns+` FROM recipe WHERE doc_id = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("get recipes by keys: %w", err)
	}
	recipes, err := collectRecipes(rows)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		out[recipes[i].Key] = &recipes[i]
	}
	return out, nil
}

// List returns a filtered page of recipes and the total match count.
func (r *RecipeRepository) List(ctx context.Context, f domain.RecipeFilter) ([]domain.Recipe, int, error) {
	var w whereBuilder

	if f.Category != "" && f.Category != "all" {
		w.add("category = ?", f.Category)
	}
	if len(f.Budget) > 0 {
		w.add("budget = ANY(?)", f.Budget)
	}
	if len(f.Difficulty) > 0 {
		w.add("difficulty = ANY(?)", f.Difficulty)
	}
	if cond := bucketCondition("total_time", f.Time, timeBuckets); cond != "" {
		w.addRaw(cond)
	}
	if cond := bucketCondition("calories", f.Calories, calorieBuckets); cond != "" {
		w.addRaw(cond)
	}
	if len(f.Tags) > 0 {
		w.add("tags @> ?", f.Tags)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add(`(title ILIKE ? OR description ILIKE ?
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(details->'ingredients') i WHERE i->>'name' ILIKE ?)
			OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE ?))`, "%"+s+"%")
	}

	limit := f.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * limit
	}

	where := w.clause()
	limitArg := w.next(limit)
	offsetArg := w.next(offset)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM recipe
		%s
		ORDER BY legacy_id DESC NULLS LAST, created_at DESC
		LIMIT %s OFFSET %s`, recipeColumns, where, limitArg, offsetArg)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var (
		recipes []domain.Recipe
		total   int
	)
	for rows.Next() {
		rec, err := scanRecipe(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan recipe row: %w", err)
		}
		recipes = append(recipes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate recipe rows: %w", err)
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return recipes, total, nil
}

// Popular returns recipes ordered by rating average.
func (r *RecipeRepository) Popular(ctx context.Context, limit int) ([]domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipe
		ORDER BY rating_average DESC, rating_count DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list popular recipes: %w", err)
	}
	return collectRecipes(rows)
}

// Related returns other recipes in the same category.
func (r *RecipeRepository) Related(ctx context.Context, category, excludeKey string, limit int) ([]domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipe
		WHERE category = $1 AND doc_id <> $2
		ORDER BY legacy_id DESC NULLS LAST
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, category, excludeKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list related recipes: %w", err)
	}
	return collectRecipes(rows)
}

// CountByCategory counts recipes per category.
func (r *RecipeRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT category, COUNT(*) FROM recipe GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan recipe count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipe counts: %w", err)
	}
	return counts, nil
}

// Create inserts a recipe with the next legacy id and an empty summary.
func (r *RecipeRepository) Create(ctx context.Context, rec *domain.Recipe) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("marshal recipe details: %w", err)
	}

	query := `
		INSERT INTO recipe (doc_id, legacy_id, title, description, category, image_url,
			prep_time, cook_time, total_time, servings, calories, budget, difficulty,
			tags, details, rating_average, rating_count, rating_total, created_at, updated_at)
		VALUES ($1, nextval('recipe_legacy_id_seq'), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, 0, 0, 0, $15, $16)
		RETURNING legacy_id`

	var legacyID int64
	err = r.db.QueryRow(ctx, query,
		rec.Key, rec.Title, rec.Description, rec.Category, rec.ImageURL,
		rec.PrepTime, rec.CookTime, rec.TotalTime, rec.Servings, rec.Calories,
		rec.Budget, rec.Difficulty, rec.Tags, details, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&legacyID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("recipe", "doc_id", rec.Key)
		}
		return fmt.Errorf("insert recipe: %w", err)
	}

	rec.LegacyID = &legacyID
	rec.Rating = domain.RatingSummary{}
	return nil
}

// Import inserts rec keeping its legacy id and rating summary. It reports
// false when a recipe with the same doc_id or legacy id already exists.
func (r *RecipeRepository) Import(ctx context.Context, rec *domain.Recipe) (bool, error) {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return false, fmt.Errorf("marshal recipe details: %w", err)
	}

	query := `
		INSERT INTO recipe (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT DO NOTHING`

	ct, err := r.db.Exec(ctx, query,
		rec.Key, rec.LegacyID, rec.Title, rec.Description, rec.Category, rec.ImageURL,
		rec.PrepTime, rec.CookTime, rec.TotalTime, rec.Servings, rec.Calories,
		rec.Budget, rec.Difficulty, rec.Tags, details,
		rec.Rating.Average, rec.Rating.Count, rec.Rating.Total, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("import recipe: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// SyncLegacySequence moves the legacy id sequence past the largest stored
// legacy id so recipes created later never collide with imported ones.
func (r *RecipeRepository) SyncLegacySequence(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`SELECT setval('recipe_legacy_id_seq', COALESCE(MAX(legacy_id), 0) + 1, false) FROM recipe`)
	if err != nil {
		return fmt.Errorf("sync legacy id sequence: %w", err)
	}
	return nil
}

// Update rewrites the authored columns. Rating columns are left alone so an
// edit never clobbers a concurrent rating submission.
func (r *RecipeRepository) Update(ctx context.Context, rec *domain.Recipe) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("marshal recipe details: %w", err)
	}
	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE recipe
		SET title = $1, description = $2, category = $3, image_url = $4,
		    prep_time = $5, cook_time = $6, total_time = $7, servings = $8, calories = $9,
		    budget = $10, difficulty = $11, tags = $12, details = $13, updated_at = $14
		WHERE doc_id = $15`

	ct, err := r.db.Exec(ctx, query,
		rec.Title, rec.Description, rec.Category, rec.ImageURL,
		rec.PrepTime, rec.CookTime, rec.TotalTime, rec.Servings, rec.Calories,
		rec.Budget, rec.Difficulty, rec.Tags, details, rec.UpdatedAt, rec.Key,
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("recipe", rec.Key)
	}
	return nil
}

// Delete removes a recipe.
func (r *RecipeRepository) Delete(ctx context.Context, key string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM recipe WHERE doc_id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("recipe", key)
	}
	return nil
}

// BatchDelete removes keys atomically.
func (r *RecipeRepository) BatchDelete(ctx context.Context, keys []string) (int, error) {
	var deleted int
	err := database.RunInTx(ctx, r.db, database.TxPolicy{Name: "batch_delete_recipes", IsoLevel: pgx.ReadCommitted, MaxAttempts: 1},
		func(tx pgx.Tx) error {
			ct, err := tx.Exec(ctx, `DELETE FROM recipe WHERE doc_id = ANY($1)`, keys)
			if err != nil {
				return fmt.Errorf("batch delete recipes: %w", err)
			}
			deleted = int(ct.RowsAffected())
			return nil
		})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// --- scanning ---

func collectRecipes(rows pgx.Rows) ([]domain.Recipe, error) {
	defer rows.Close()

	recipes := []domain.Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe row: %w", err)
		}
		recipes = append(recipes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipe rows: %w", err)
	}
	return recipes, nil
}

// scanRecipe scans recipeColumns followed by any extra destinations.
func scanRecipe(row pgx.Row, extra ...any) (*domain.Recipe, error) {
	var (
		rec     domain.Recipe
		details []byte
	)
	dest := []any{
		&rec.Key, &rec.LegacyID, &rec.Title, &rec.Description, &rec.Category, &rec.ImageURL,
		&rec.PrepTime, &rec.CookTime, &rec.TotalTime, &rec.Servings, &rec.Calories,
		&rec.Budget, &rec.Difficulty, &rec.Tags, &details,
		&rec.Rating.Average, &rec.Rating.Count, &rec.Rating.Total,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, fmt.Errorf("unmarshal recipe details: %w", err)
		}
	}
	rec.Normalize()
	return &rec, nil
}

// --- filter buckets ---

var timeBuckets = map[string]string{
	domain.TimeUnder30: "%[1]s <= 30",
	domain.Time30To60:  "(%[1]s > 30 AND %[1]s <= 60)",
	domain.TimeOver60:  "%[1]s > 60",
}

var calorieBuckets = map[string]string{
	domain.CaloriesUnder300: "%[1]s <= 300",
	domain.Calories300To600: "(%[1]s > 300 AND %[1]s <= 600)",
	domain.CaloriesOver600:  "%[1]s > 600",
}

// bucketCondition ORs the known buckets in values against column. Unknown
// bucket names are ignored; an empty result means no restriction.
func bucketCondition(column string, values []string, buckets map[string]string) string {
	var parts []string
	for _, v := range values {
		if tmpl, ok := buckets[v]; ok {
			parts = append(parts, fmt.Sprintf(tmpl, column))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
