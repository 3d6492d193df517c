package middleware

import (
	"context"  // Verifier signature
	"net/http" // HTTP status codes
	"time"     // Cookie expiry

	"driver_ledger/internal/utils" // Session claims

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// SessionCookie holds the signed session token.
const SessionCookie = "session"

// Context keys set by SessionAuth
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextToken    = "sessionToken"
)

// Verifier checks a session token, including revocation.
type Verifier interface {
	Verify(ctx context.Context, token string) (*utils.Claims, error)
}

// SessionAuth lets the request through only with a valid session cookie.
// Anonymous visitors are redirected to the login page.
func SessionAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, token, ok := sessionClaims(c, v)
		if !ok {
			ClearSessionCookie(c)                  // Drop whatever stale value was sent
			c.Redirect(http.StatusFound, "/login") // Send the visitor to log in
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)     // Store userID in context
		c.Set(ContextUsername, claims.Username) // Shown in the page header
		c.Set(ContextToken, token)              // Needed by logout
		c.Next()
	}
}

// OptionalSession fills the context like SessionAuth but never blocks.
func OptionalSession(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, token, ok := sessionClaims(c, v); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUsername, claims.Username)
			c.Set(ContextToken, token)
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context, v Verifier) (*utils.Claims, string, bool) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return nil, "", false
	}
	claims, err := v.Verify(c.Request.Context(), token)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(ContextRequestID),
			"error":      err.Error(),
		}).Debug("Session rejected")
		return nil, "", false
	}
	return claims, token, true
}

// SetSessionCookie stores token in an HttpOnly cookie.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID returns the authenticated user's ID, set by SessionAuth.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
