package domain

import "time"

// User is a community member who logs in with a username and password.
type User struct {
	ID           string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Bio          string    `json:"bio"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type SignupRequest struct {
	Username string
	Email    string
	Password string
}

// UpdateProfileRequest holds the editable profile fields. Nil means unchanged.
type UpdateProfileRequest struct {
	Email *string
	Bio   *string
}

const (
	MinPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input
	MaxPasswordBytes = 72
)
