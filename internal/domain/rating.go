package domain

import (
	"math"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one user's score for one recipe. There is at most one per
// (RecipeID, UserID) pair.
type Rating struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRating reports whether v is an accepted rating value.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// RatingSummary is the aggregate stored on the recipe row. Total is the exact
// sum of rating values; Average is derived from it.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Total   int64   `json:"-"`
}

// Apply returns the summary after a user submits value. previous is the
// user's existing rating, or nil for a first submission.
func (s RatingSummary) Apply(previous *int, value int) RatingSummary {
	next := RatingSummary{Count: s.Count, Total: s.exactTotal()}
	if previous == nil {
		next.Count++
		next.Total += int64(value)
	} else {
		next.Total += int64(value - *previous)
	}
	return next.withAverage()
}

// Retract returns the summary with one rating of value removed.
func (s RatingSummary) Retract(value int) RatingSummary {
	next := RatingSummary{Count: s.Count - 1, Total: s.exactTotal() - int64(value)}
	if next.Count <= 0 || next.Total < 0 {
		return RatingSummary{}
	}
	return next.withAverage()
}

func (s RatingSummary) exactTotal() int64 {
	if s.Total == 0 && s.Count > 0 {
		// Rows written before the total was stored carry only the average.
		return int64(math.Round(s.Average * float64(s.Count)))
	}
	return s.Total
}

func (s RatingSummary) withAverage() RatingSummary {
	s.Average = 0
	if s.Count > 0 {
		s.Average = Round2(float64(s.Total) / float64(s.Count))
	}
	return s
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RatingResult is returned after a successful submission.
type RatingResult struct {
	Success     bool          `json:"success"`
	RatingID    string        `json:"rating_id"`
	UserRating  int           `json:"user_rating"`
	RecipeStats RatingSummary `json:"recipe_stats"`
}
