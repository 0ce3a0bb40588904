package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

const minPasswordLength = 8

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service registers users and opens sessions for them.
type Service struct {
	users  ports.UserStore
	tokens *TokenIssuer
	logger *log.Logger
	nowFn  func() time.Time
}

func NewService(users ports.UserStore, tokens *TokenIssuer, logger *log.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
		nowFn:  time.Now,
	}
}

// SignUp creates a user and returns a session token for it.
func (s *Service) SignUp(ctx context.Context, email, password string) (Identity, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, "", err
	}
	if len([]rune(password)) < minPasswordLength {
		return Identity{}, "", ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, "", err
	}

	u := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.nowFn().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return Identity{}, "", ErrEmailTaken
		}
		return Identity{}, "", fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldOperation, log.OpRegister)
	return s.open(u)
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, "", ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Identity{}, "", ErrInvalidCredentials
		}
		return Identity{}, "", fmt.Errorf("load user: %w", err)
	}

	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		s.logger.ErrorContext(ctx, "Stored password hash unreadable", log.FieldUserID, u.ID, log.FieldError, err)
		return Identity{}, "", ErrInvalidCredentials
	}
	if !ok {
		return Identity{}, "", ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
	return s.open(u)
}

func (s *Service) open(u core.User) (Identity, string, error) {
	id := Identity{UserID: u.ID, Email: u.Email}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
