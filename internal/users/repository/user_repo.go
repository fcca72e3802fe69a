package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/leafit/leafit-backend/internal/users/domain"
)

const (
	uniqueViolation = "23505"
	// raised when an id is not a valid uuid
	invalidTextRepresentation = "22P02"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and fills in the generated id and timestamps
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, bio, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		nullIfEmpty(user.Email),
		user.Bio,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE id = $1::uuid`, id)
}

// GetByUsername retrieves a user by username, case-sensitively
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE username = $1`, username)
}

// UpdateProfile stores email and bio
func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, bio = $3, updated_at = NOW()
		WHERE id = $1::uuid
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, user.ID, nullIfEmpty(user.Email), user.Bio).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows || isInvalidID(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	query := `
		SELECT id::text, username, email, bio, password_hash, created_at, updated_at
		FROM users
	` + where

	var user domain.User
	var email sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&email,
		&user.Bio,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows || isInvalidID(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if email.Valid {
		user.Email = email.String
	}
	return &user, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isInvalidID reports a malformed uuid, which can never match a stored user.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}
