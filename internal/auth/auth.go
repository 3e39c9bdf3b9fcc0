package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"farmhand/internal/logging"
)

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a session token is missing or expired
	ErrInvalidToken = errors.New("invalid or expired session")
)

// User is an account as the authenticator sees it
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsAdmin      bool
}

// SessionToken is an issued login token
type SessionToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Store interface for account and token persistence.
// Lookups return nil, nil when nothing matches.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (int64, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	CreateSessionToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSessionToken(ctx context.Context, token string) (*SessionToken, error)
	DeleteSessionToken(ctx context.Context, token string) error
}

// Authenticator implements username/password authentication with
// database-backed session tokens.
type Authenticator struct {
	store         Store
	sessionExpiry time.Duration
	logger        *logging.Logger
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(store Store, sessionExpiryDays int, logger *logging.Logger) *Authenticator {
	return &Authenticator{
		store:         store,
		sessionExpiry: time.Duration(sessionExpiryDays) * 24 * time.Hour,
		logger:        logger,
	}
}

// SeedAdmin creates the admin account if it does not exist yet
func (a *Authenticator) SeedAdmin(ctx context.Context, username, password string) error {
	existing, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("auth: lookup admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("auth: hash admin password: %w", err)
	}

	if _, err := a.store.CreateUser(ctx, username, hash, true); err != nil {
		return fmt.Errorf("auth: create admin: %w", err)
	}

	a.logger.WithContext("username", username).Info("admin account created")
	return nil
}

// Login authenticates credentials and returns a session token
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("auth: lookup user: %w", err)
	}
	if user == nil || !checkPasswordHash(password, user.PasswordHash) {
		a.logger.WithContext("username", username).Warn("failed login attempt")
		return "", ErrInvalidCredentials
	}

	// 32 bytes = 256 bits of entropy
	token, err := generateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}

	expiresAt := time.Now().Add(a.sessionExpiry)
	if err := a.store.CreateSessionToken(ctx, token, user.ID, expiresAt); err != nil {
		return "", fmt.Errorf("auth: create session: %w", err)
	}

	a.store.UpdateLastLogin(ctx, user.ID)
	a.logger.WithContext("username", username).Info("user logged in")
	return token, nil
}

// Logout invalidates a session token
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	return a.store.DeleteSessionToken(ctx, token)
}

// ValidateToken verifies a token and returns the owning user's id
func (a *Authenticator) ValidateToken(ctx context.Context, token string) (int64, error) {
	st, err := a.store.GetSessionToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("auth: lookup token: %w", err)
	}
	if st == nil {
		return 0, ErrInvalidToken
	}
	return st.UserID, nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
