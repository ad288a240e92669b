package service

import (
	"fmt"
	"net/http"

	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

// Error codes specific to HealthyLife.
const (
	CodeRecipeNotFound         = "RECIPE_NOT_FOUND"
	CodeRatingSubmissionFailed = "RATING_SUBMISSION_FAILED"
)

// recipeNotFound is terminal for the enclosing operation.
func recipeNotFound(raw string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    CodeRecipeNotFound,
		Message: fmt.Sprintf("recipe %q not found", raw),
		Status:  http.StatusNotFound,
		Err:     apperrors.ErrNotFound,
	}
}

func ratingSubmissionFailed(cause error) *apperrors.AppError {
	return apperrors.Unavailable(CodeRatingSubmissionFailed, "rating could not be saved, please retry", cause)
}
