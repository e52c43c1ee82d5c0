// Package middleware provides HTTP middleware for the credentials API.
package middleware

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey ContextKey = "user"

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgPermissionDenied = "You do not have permission to perform this action."
)

// TokenVerifier verifies LMS ID tokens presented as bearer tokens.
type TokenVerifier interface {
	VerifyRawIDToken(ctx context.Context, rawIDToken string) (*auth.IDTokenClaims, error)
}

// UserStore mirrors LMS accounts authenticated by bearer token.
type UserStore interface {
	UpsertUser(ctx context.Context, u *models.User) error
}

// Authenticator resolves the requesting user from a bearer ID token or the
// session cookie. Either source may be nil.
type Authenticator struct {
	sessions *auth.SessionStore
	verifier TokenVerifier
	users    UserStore
	logger   zerolog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(sessions *auth.SessionStore, verifier TokenVerifier, users UserStore, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		verifier: verifier,
		users:    users,
		logger:   logger.With().Str("component", "auth_middleware").Logger(),
	}
}

func (a *Authenticator) authenticate(c *gin.Context) *auth.SessionUser {
	if token := auth.ExtractBearerToken(c.GetHeader("Authorization")); token != "" && a.verifier != nil {
		claims, err := a.verifier.VerifyRawIDToken(c.Request.Context(), token)
		if err != nil {
			a.logger.Debug().Err(err).Msg("bearer token rejected")
			return nil
		}
		u, err := claims.User()
		if err != nil {
			a.logger.Debug().Err(err).Msg("bearer token has no LMS user")
			return nil
		}
		if a.users != nil {
			if err := a.users.UpsertUser(c.Request.Context(), u); err != nil {
				a.logger.Error().Err(err).Int64("user_id", u.ID).Msg("failed to mirror bearer user")
				return nil
			}
		}
		return auth.NewSessionUser(u)
	}

	if a.sessions == nil {
		return nil
	}
	u, err := a.sessions.GetUser(c.Request)
	if err != nil {
		return nil
	}
	return u
}

// Required rejects unauthenticated requests with 403.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := a.authenticate(c)
		if u == nil {
			a.logger.Debug().Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgNotAuthenticated})
			return
		}
		c.Set(string(UserContextKey), u)

		a.logger.Debug().
			Int64("user_id", u.ID).
			Str("path", c.Request.URL.Path).
			Msg("authenticated request")

		c.Next()
	}
}

// Optional loads the user if present but does not require it.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := a.authenticate(c); u != nil {
			c.Set(string(UserContextKey), u)
		}
		c.Next()
	}
}

// RequireStaff rejects non-staff users. It must run after Required.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := GetUser(c)
		if u == nil || !u.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgPermissionDenied})
			return
		}
		c.Next()
	}
}

// GetUser retrieves the authenticated user from the Gin context.
// Returns nil if no user is authenticated.
func GetUser(c *gin.Context) *auth.SessionUser {
	user, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil
	}
	sessionUser, ok := user.(*auth.SessionUser)
	if !ok {
		return nil
	}
	return sessionUser
}

// RequireUser gets the authenticated user or aborts with 403.
func RequireUser(c *gin.Context) *auth.SessionUser {
	user := GetUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": msgNotAuthenticated})
		return nil
	}
	return user
}
