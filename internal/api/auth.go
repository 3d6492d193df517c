package api

import (
	"context"  // Gate signatures
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"time"     // Session lifetime

	"driver_ledger/internal/domain"     // Domain models and errors
	"driver_ledger/internal/middleware" // Session cookie helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// Gate is the authentication service used by the login, registration and logout pages
type Gate interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, string, error)
	Logout(ctx context.Context, token string) error
	SessionLifetime() time.Duration
}

// IndexHandler shows the landing page, or the dashboard when already logged in
func IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.UserID(c); ok {
			c.Redirect(http.StatusFound, "/dashboard") // Logged in users go straight to work
			return
		}
		render(c, http.StatusOK, "index.html", gin.H{"Title": "Início"})
	}
}

// LoginPageHandler shows the login form
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.UserID(c); ok {
			c.Redirect(http.StatusFound, "/dashboard")
			return
		}
		render(c, http.StatusOK, "login.html", gin.H{"Title": "Entrar"})
	}
}

// LoginHandler authenticates a user and sets the session cookie
func LoginHandler(gate Gate, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form CredentialsForm
		if err := bindForm(c, &form); err != nil {
			msg, _ := validationMessage(err)
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, "/login")
			return
		}

		user, token, err := gate.Authenticate(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			setFlash(c, flashError, "Usuário ou senha inválidos")
			c.Redirect(http.StatusFound, "/login")
			return
		} else if err != nil {
			renderServerError(c, err, "Login failed")
			return
		}

		middleware.SetSessionCookie(c, token, gate.SessionLifetime(), secureCookie)
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,
			"request_id": c.GetString(middleware.ContextRequestID),
		}).Info("User logged in")
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// RegisterPageHandler shows the registration form
func RegisterPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, http.StatusOK, "cadastro.html", gin.H{"Title": "Cadastro"})
	}
}

// RegisterHandler creates a new user account
func RegisterHandler(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form CredentialsForm
		err := bindForm(c, &form)
		if err == nil {
			_, err = gate.Register(c.Request.Context(), form.Username, form.Password)
		}
		if errors.Is(err, domain.ErrDuplicateUser) {
			setFlash(c, flashError, "Nome de usuário já existe")
			c.Redirect(http.StatusFound, "/cadastro")
			return
		}
		if msg, ok := validationMessage(err); ok {
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, "/cadastro")
			return
		}
		if err != nil {
			renderServerError(c, err, "Registration failed")
			return
		}

		setFlash(c, flashSuccess, "Cadastro realizado com sucesso!")
		c.Redirect(http.StatusFound, "/login")
	}
}

// LogoutHandler revokes the session token and clears the cookie
func LogoutHandler(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Logout(c.Request.Context(), c.GetString(middleware.ContextToken)); err != nil {
			// The cookie is cleared anyway
			logrus.WithFields(logrus.Fields{
				"request_id": c.GetString(middleware.ContextRequestID),
				"error":      err.Error(),
			}).Warn("Session revocation failed")
		}
		middleware.ClearSessionCookie(c)
		c.Redirect(http.StatusFound, "/")
	}
}
