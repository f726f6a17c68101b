// Package accounts handles registration, login and profile operations.
package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

const minPasswordLength = 8

// ErrInvalidCredentials is the single message for any login failure, so the
// response never reveals whether the email exists.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password")

// Service manages storefront accounts and their sessions.
type Service struct {
	users  storage.UserStore
	issuer *auth.Issuer
	oauth  map[string]OAuthProvider
	log    *logger.Logger
}

// New constructs an account service.
func New(users storage.UserStore, issuer *auth.Issuer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		users:  users,
		issuer: issuer,
		oauth:  make(map[string]OAuthProvider),
		log:    log,
	}
}

// RegisterOAuthProvider makes a provider available to OAuthLogin.
func (s *Service) RegisterOAuthProvider(name string, p OAuthProvider) {
	s.oauth[strings.ToLower(name)] = p
}

// AuthResult is a logged-in user with their freshly issued token.
type AuthResult struct {
	User  user.User
	Token string
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, name, email, password string) (user.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return user.User{}, fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return user.User{}, fmt.Errorf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return user.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, fmt.Errorf("email %s already registered", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleUser,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login verifies credentials and issues a token plus its session row.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if u.PasswordHash == "" {
		// OAuth-only account
		return AuthResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.startSession(ctx, u)
}

// Logout deletes the session behind a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.users.DeleteSession(ctx, auth.HashToken(token))
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateName changes the display name.
func (s *Service) UpdateName(ctx context.Context, userID int64, name string) (user.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return user.User{}, fmt.Errorf("name is required")
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	u.Name = name
	return s.users.UpdateUser(ctx, u)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("new password must be at least %d characters", minPasswordLength)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *Service) startSession(ctx context.Context, u user.User) (AuthResult, error) {
	token, err := s.issuer.Generate(u.ID, u.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	_, err = s.users.CreateSession(ctx, user.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: time.Now().Add(s.issuer.TTL()),
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	s.log.WithField("user_id", u.ID).Info("session started")
	return AuthResult{User: u, Token: token}, nil
}
