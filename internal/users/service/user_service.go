package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/users/domain"
)

// UserStore is the persistence the user service needs.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
}

type UserService struct {
	store UserStore
	log   *logger.Logger
	cost  int
}

func NewUserService(store UserStore, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{
		store: store,
		log:   log.With("service", "users"),
		cost:  bcrypt.DefaultCost,
	}
}

// Signup registers a new member with a bcrypt-hashed password
func (s *UserService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrMissingCredentials
	}
	if len(req.Password) < domain.MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}
	if len(req.Password) > domain.MaxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks a username/password pair. Unknown users and wrong passwords
// return the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}

	user, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Debug("login rejected", "username", username)
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, req domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
