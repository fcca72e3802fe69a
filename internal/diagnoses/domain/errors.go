package domain

import "github.com/leafit/leafit-backend/internal/platform/apperr"

var (
	ErrDiagnosisNotFound   = apperr.NotFound("Diagnosis not found")
	ErrMissingFields       = apperr.InvalidInput("Plant name and symptoms are required")
	ErrInvalidStatus       = apperr.InvalidInput("Status must be ongoing, resolved or testing")
	ErrInvalidResult       = apperr.InvalidInput("Result must be testing, worked or didn't work")
	ErrMissingTreatmentID  = apperr.InvalidInput("Treatment ID is required")
	ErrDiagnosisContention = apperr.Conflict("Diagnosis was modified concurrently, try again")
)
