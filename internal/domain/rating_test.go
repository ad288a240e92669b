package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestRatingSummary_Apply(t *testing.T) {
	var s RatingSummary

	// First rating.
	s = s.Apply(nil, 4)
	assert.Equal(t, RatingSummary{Average: 4, Count: 1, Total: 4}, s)

	// Second user.
	s = s.Apply(nil, 2)
	assert.Equal(t, RatingSummary{Average: 3, Count: 2, Total: 6}, s)

	// First user changes 4 -> 5.
	s = s.Apply(intPtr(4), 5)
	assert.Equal(t, RatingSummary{Average: 3.5, Count: 2, Total: 7}, s)

	// Same value again leaves everything unchanged.
	assert.Equal(t, s, s.Apply(intPtr(5), 5))
}

func TestRatingSummary_ApplyRounds(t *testing.T) {
	s := RatingSummary{}.Apply(nil, 5).Apply(nil, 4).Apply(nil, 4)
	assert.Equal(t, 4.33, s.Average)
	assert.Equal(t, int64(13), s.Total)
}

func TestRatingSummary_ApplyUpdateOnEmptyStaysZero(t *testing.T) {
	// An update against a zero-count summary cannot divide by zero.
	s := RatingSummary{}.Apply(intPtr(3), 4)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.Average)
}

func TestValidRating(t *testing.T) {
	for _, v := range []int{1, 2, 3, 4, 5} {
		assert.True(t, ValidRating(v), v)
	}
	for _, v := range []int{-1, 0, 6} {
		assert.False(t, ValidRating(v), v)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.67, Round2(11.0/3.0))
	assert.Equal(t, 2.5, Round2(2.5))
}

func TestRatingSummary_ApplyDerivesMissingTotal(t *testing.T) {
	legacy := RatingSummary{Average: 3.5, Count: 2}

	s := legacy.Apply(nil, 5)
	assert.Equal(t, RatingSummary{Average: 4, Count: 3, Total: 12}, s)
}

func TestRatingSummary_Retract(t *testing.T) {
	s := RatingSummary{Average: 4, Count: 2, Total: 8}.Retract(5)
	assert.Equal(t, RatingSummary{Average: 3, Count: 1, Total: 3}, s)

	assert.Equal(t, RatingSummary{}, s.Retract(3))
}

func TestRatingSummary_RetractDerivesMissingTotal(t *testing.T) {
	legacy := RatingSummary{Average: 3.5, Count: 2}

	assert.Equal(t, RatingSummary{Average: 3, Count: 1, Total: 3}, legacy.Retract(4))
}

func TestRatingSummary_RetractNeverGoesNegative(t *testing.T) {
	assert.Equal(t, RatingSummary{}, RatingSummary{}.Retract(4))
	assert.Equal(t, RatingSummary{}, RatingSummary{Average: 1, Count: 2, Total: 2}.Retract(5))
}
