package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 128 characters")
)

const (
	maxEmailLength    = 254
	minPasswordLength = 6
	// Bounded to keep pathological inputs away from the hasher.
	maxPasswordLength = 128
)

// Service handles signup and login.
type Service struct {
	userRepo      user.Repository
	tokenService  TokenService
	logger        *logging.Logger
	tokenDuration time.Duration
}

func NewService(userRepo user.Repository, tokenService TokenService, logger *logging.Logger, tokenDuration time.Duration) *Service {
	return &Service{
		userRepo:      userRepo,
		tokenService:  tokenService,
		logger:        logger,
		tokenDuration: tokenDuration,
	}
}

// AuthResult is a freshly authenticated identity plus its session token.
type AuthResult struct {
	User  *user.User
	Token string
}

// Register creates a new account and issues a session token right away, so
// signup doubles as a first login.
func (s *Service) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	// Minimal sanity check, not full RFC validation; the frontend does its
	// own format checking.
	if utf8.RuneCountInString(email) > maxEmailLength || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	// Password bounds count characters, not bytes.
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if utf8.RuneCountInString(password) > maxPasswordLength {
		return nil, ErrPasswordTooLong
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The repository pre-checks for duplicates, but the store's uniqueness
	// constraint is the source of truth under concurrent signups.
	newUser, err := s.userRepo.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokenService.CreateToken(newUser.ID, newUser.Email, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID)

	return &AuthResult{User: newUser, Token: token}, nil
}

// Login authenticates a user and returns a session token. Unknown email, bad
// password and inactive account all collapse to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existingUser.IsActive {
		s.logger.Warn("login attempt on inactive account", "user_id", existingUser.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.CreateToken(existingUser.ID, existingUser.Email, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &AuthResult{User: existingUser, Token: token}, nil
}
