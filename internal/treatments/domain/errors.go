package domain

import "github.com/leafit/leafit-backend/internal/platform/apperr"

var (
	ErrTreatmentNotFound = apperr.NotFound("Treatment not found")
	ErrMissingFields     = apperr.InvalidInput("All fields are required")
	ErrInvalidType       = apperr.InvalidInput("Treatment type must be organic or chemical")
	ErrRatingContention  = apperr.Conflict("Treatment is being rated by someone else, try again")
)
