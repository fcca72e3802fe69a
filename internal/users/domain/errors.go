package domain

import "github.com/leafit/leafit-backend/internal/platform/apperr"

var (
	ErrUserNotFound       = apperr.NotFound("User not found")
	ErrUsernameTaken      = apperr.Conflict("Username already exists")
	ErrInvalidCredentials = apperr.Unauthenticated("Invalid credentials")
	ErrMissingCredentials = apperr.InvalidInput("Username and password are required")
	ErrPasswordTooShort   = apperr.InvalidInput("Password must be at least 6 characters")
	ErrPasswordTooLong    = apperr.InvalidInput("Password must be at most 72 bytes")
)
