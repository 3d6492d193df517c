// Package auth registers users, checks their passwords and issues the session
// token carried by the browser cookie.
package auth

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel comparison
	"fmt"     // Error wrapping
	"strings" // Username trimming
	"time"    // Token lifetimes
	"unicode/utf8"

	"driver_ledger/internal/domain" // Domain models and errors
	"driver_ledger/internal/utils"  // JWT and cache helpers

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// UserStore is what the gate needs from the user repository.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Options tune the gate.
type Options struct {
	Secret            string        // HMAC key for session tokens
	SessionLifetime   time.Duration // Token expiry
	PasswordMinLength int           // Shortest accepted password at registration
}

// Service is the authentication gate.
type Service struct {
	users UserStore
	cache utils.Cache
	opts  Options
}

// NewService builds the gate. A nil cache turns Logout into a cookie-only logout.
func NewService(users UserStore, cache utils.Cache, opts Options) *Service {
	if cache == nil {
		cache = utils.NopCache{}
	}
	if opts.SessionLifetime <= 0 {
		opts.SessionLifetime = 30 * time.Minute
	}
	return &Service{users: users, cache: cache, opts: opts}
}

// SessionLifetime is how long issued tokens stay valid.
func (s *Service) SessionLifetime() time.Duration {
	return s.opts.SessionLifetime
}

// Register creates a user with a bcrypt hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must not be empty")
	}
	if utf8.RuneCountInString(username) > 80 {
		return nil, domain.NewValidationError("username", "must be at most 80 characters")
	}
	if utf8.RuneCountInString(password) < s.opts.PasswordMinLength {
		return nil, domain.NewValidationError("password", fmt.Sprintf("must have at least %d characters", s.opts.PasswordMinLength))
	}
	// bcrypt rejects anything longer
	if len(password) > 72 {
		return nil, domain.NewValidationError("password", "must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return user, nil
}

// Authenticate checks the credentials and returns the user with a fresh session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.ErrInvalidCredentials
	} else if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logrus.WithField("user_id", user.ID).Warn("Password mismatch")
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Username, s.opts.Secret, s.opts.SessionLifetime)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}
	return user, token, nil
}

// Verify parses token and rejects it when it was revoked by Logout.
func (s *Service) Verify(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(token, s.opts.Secret)
	if err != nil {
		return nil, err
	}
	var revoked bool
	found, err := s.cache.Get(ctx, revokedKey(claims.ID), &revoked)
	if err != nil {
		// Fail open when the cache is down
		logrus.WithFields(logrus.Fields{"user_id": claims.UserID, "error": err.Error()}).Warn("Revocation lookup failed")
	} else if found && revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// ErrTokenRevoked is returned by Verify for tokens that were logged out.
var ErrTokenRevoked = errors.New("session token revoked")

// Logout marks the token as revoked until it would have expired anyway.
// Tokens that no longer parse are already unusable and are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseJWT(token, s.opts.Secret)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revokedKey(claims.ID), true, ttl); err != nil {
		return fmt.Errorf("revoke session token: %w", err)
	}
	logrus.WithField("user_id", claims.UserID).Info("User logged out")
	return nil
}

func revokedKey(jti string) string {
	return "session:revoked:" + jti
}
