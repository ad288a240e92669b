package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rating submission outcomes.
const (
	outcomeSuccess  = "success"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

var ratingSubmissions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rating_submissions_total",
		Help: "Rating submissions by outcome.",
	},
	[]string{"outcome"},
)
