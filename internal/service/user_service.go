package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
	"github.com/MikhailRaia/codekeeper/internal/validation"
)

var (
	// ErrEmailTaken is returned by Signup when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email and
	// for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned by Profile for an unknown user id.
	ErrUserNotFound = errors.New("user not found")
)

// TokenIssuer issues session tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

// SignupInput is the payload of a signup request.
type SignupInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserService manages accounts and issues tokens on login.
type UserService struct {
	store    storage.UserStore
	tokens   TokenIssuer
	now      func() time.Time
	hashCost int
}

// NewUserService constructs a UserService.
func NewUserService(store storage.UserStore, tokens TokenIssuer) *UserService {
	return &UserService{
		store:    store,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
		hashCost: bcrypt.DefaultCost,
	}
}

// Signup registers a new user.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	if err := validation.Validate(in); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	log.Debug().Str("user_id", created.ID).Msg("User registered")
	return created, nil
}

// Login checks the credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validation.Validate(in); err != nil {
		return "", err
	}

	u, err := s.store.FindUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	log.Debug().Str("user_id", u.ID).Msg("User logged in")
	return token, nil
}

// Profile returns the user with the given id.
func (s *UserService) Profile(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
