package domain

import (
	"slices"
	"time"
)

// Recipe categories.
const (
	CategoryBreakfast = "breakfast"
	CategoryLunch     = "lunch"
	CategoryDinner    = "dinner"
	CategoryDessert   = "dessert"
	CategoryVegan     = "vegan"
)

// Categories lists the known recipe categories.
var Categories = []string{CategoryBreakfast, CategoryLunch, CategoryDinner, CategoryDessert, CategoryVegan}

// Budget and difficulty levels.
const (
	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Time and calorie buckets accepted by RecipeFilter.
const (
	TimeUnder30 = "under30"
	Time30To60  = "30to60"
	TimeOver60  = "over60"

	CaloriesUnder300 = "under300"
	Calories300To600 = "300to600"
	CaloriesOver600  = "over600"
)

// Ingredient is a single recipe ingredient line.
type Ingredient struct {
	Name   string `json:"name" validate:"required"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Nutrition holds per-serving nutrition facts.
type Nutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
	Fiber    int `json:"fiber"`
	Sugar    int `json:"sugar"`
}

// RecipeDetails is the free-form part of a recipe, stored as one JSON column.
type RecipeDetails struct {
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tips         []string     `json:"tips"`
	Nutrition    Nutrition    `json:"nutrition"`
}

// Recipe is a stored recipe. Rating is maintained only by the rating flow.
type Recipe struct {
	Key         string        `json:"doc_id"`
	LegacyID    *int64        `json:"id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	ImageURL    string        `json:"image"`
	PrepTime    int           `json:"prep_time"`
	CookTime    int           `json:"cook_time"`
	TotalTime   int           `json:"total_time"`
	Servings    int           `json:"servings"`
	Calories    int           `json:"calories"`
	Budget      string        `json:"budget"`
	Difficulty  string        `json:"difficulty"`
	Tags        []string      `json:"tags"`
	Details     RecipeDetails `json:"details"`
	Rating      RatingSummary `json:"rating"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Ref returns the recipe's resolved identity.
func (r *Recipe) Ref() RecipeRef {
	return RecipeRef{Key: r.Key, LegacyID: r.LegacyID}
}

// Normalize fills defaults a stored recipe must have.
func (r *Recipe) Normalize() {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Details.Ingredients == nil {
		r.Details.Ingredients = []Ingredient{}
	}
	if r.Details.Instructions == nil {
		r.Details.Instructions = []string{}
	}
	if r.Details.Tips == nil {
		r.Details.Tips = []string{}
	}
	if r.Details.Nutrition.Calories == 0 {
		r.Details.Nutrition.Calories = r.Calories
	}
}

// RecipeFilter narrows a recipe listing. Within a multi-valued field any value
// matches, except Tags where every tag must be present.
type RecipeFilter struct {
	Category   string
	Budget     []string
	Difficulty []string
	Time       []string
	Calories   []string
	Tags       []string
	Search     string
	Page       int
	PerPage    int
}

// FilterOption is one selectable value in a listing filter.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// FilterOptions is the catalogue of listing filters.
type FilterOptions struct {
	Budget      []FilterOption `json:"budget"`
	Time        []FilterOption `json:"time"`
	Calories    []FilterOption `json:"calories"`
	Difficulty  []FilterOption `json:"difficulty"`
	PopularTags []string       `json:"popular_tags"`
}

// DefaultFilterOptions returns the filter catalogue shown to clients.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		Budget: []FilterOption{
			{Value: BudgetLow, Label: "Budget-friendly ($)", Color: "#52c41a"},
			{Value: BudgetMedium, Label: "Moderate ($$)", Color: "#faad14"},
			{Value: BudgetHigh, Label: "Gourmet ($$$)", Color: "#f5222d"},
		},
		Time: []FilterOption{
			{Value: TimeUnder30, Label: "Under 30 minutes"},
			{Value: Time30To60, Label: "30-60 minutes"},
			{Value: TimeOver60, Label: "Over 60 minutes"},
		},
		Calories: []FilterOption{
			{Value: CaloriesUnder300, Label: "Low calorie (<300)"},
			{Value: Calories300To600, Label: "Medium calorie (300-600)"},
			{Value: CaloriesOver600, Label: "High calorie (>600)"},
		},
		Difficulty: []FilterOption{
			{Value: DifficultyEasy, Label: "Easy", Color: "#52c41a"},
			{Value: DifficultyMedium, Label: "Medium", Color: "#faad14"},
			{Value: DifficultyHard, Label: "Hard", Color: "#f5222d"},
		},
		PopularTags: []string{
			"vegetarian", "vegan", "gluten-free", "dairy-free", "low-carb",
			"high-protein", "quick", "protein-rich", "healthy-fats",
			"meal-prep", "family-friendly", "budget-friendly",
		},
	}
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}
