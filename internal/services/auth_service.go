package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/repository"
)

// Claims carries the user id inside an issued token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// AuthService issues session tokens. Passwords are required on the wire
// but never stored or checked.
type AuthService struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *log.Logger
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, secret []byte, tokenTTL time.Duration, logger *log.Logger) *AuthService {
	return &AuthService{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger.WithComponent(log.ComponentAuth),
		now:      time.Now,
	}
}

// Register creates a new user. Registering a known email signs in as the
// existing user; the name and password are not compared.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (core.User, string, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return core.User{}, "", core.ErrMissingFields
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return core.User{}, "", core.ErrInvalidEmail
	}

	u := core.User{ID: uuid.NewString(), Email: email, Name: name}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, core.ErrConflict) {
			return core.User{}, "", fmt.Errorf("register: %w", err)
		}
		if u, err = s.users.FindByEmail(ctx, email); err != nil {
			return core.User{}, "", fmt.Errorf("register: %w", err)
		}
		s.logger.InfoContext(ctx, "Registration for existing email, returning existing user",
			log.FieldOperation, log.OpRegister)
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister)
	return u, token, nil
}

// Login returns the user for email, creating it on first sight.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, "", core.ErrMissingCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		u = core.User{ID: uuid.NewString(), Email: email, Name: core.NameFromEmail(email)}
		if err := s.users.Create(ctx, u); err != nil {
			return core.User{}, "", fmt.Errorf("login: %w", err)
		}
		s.logger.InfoContext(ctx, "User created on login", log.FieldOperation, log.OpLogin)
	case err != nil:
		return core.User{}, "", fmt.Errorf("login: %w", err)
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) issue(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
