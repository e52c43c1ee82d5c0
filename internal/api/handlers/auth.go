package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/learning-credentials/internal/api/middleware"
	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// OIDCProvider performs the authorization code flow against the LMS.
type OIDCProvider interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	VerifyIDToken(ctx context.Context, token *oauth2.Token) (*auth.IDTokenClaims, error)
}

// UserStore mirrors LMS accounts locally.
type UserStore interface {
	UpsertUser(ctx context.Context, u *models.User) error
}

// UserResponse describes the authenticated user.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// AuthHandler handles login against the LMS identity provider.
type AuthHandler struct {
	oidc        OIDCProvider
	sessions    *auth.SessionStore
	users       UserStore
	redirectURL string
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. After login the user is
// redirected to redirectURL.
func NewAuthHandler(oidc OIDCProvider, sessions *auth.SessionStore, users UserStore, redirectURL string, logger zerolog.Logger) *AuthHandler {
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &AuthHandler{
		oidc:        oidc,
		sessions:    sessions,
		users:       users,
		redirectURL: redirectURL,
		logger:      logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the login flow routes.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.Engine) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/logout", h.Logout)
	}
}

// RegisterRoutes registers routes that require an authenticated user.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me/", h.Me)
}

// Login redirects to the LMS authorization endpoint.
//
//	@Summary		Start login
//	@Description	Redirects to the LMS OpenID Connect provider.
//	@Tags			Auth
//	@Success		307	"Redirect to the LMS"
//	@Failure		500	{object}	map[string]string
//	@Router			/auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}
	if err := h.sessions.SetOIDCState(c.Request, c.Writer, state); err != nil {
		h.logger.Error().Err(err).Msg("failed to save state to session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.oidc.AuthorizationURL(state))
}

// Callback completes the authorization code flow and starts a session.
//
//	@Summary		OIDC callback
//	@Description	Exchanges the authorization code, mirrors the LMS user and creates a session.
//	@Tags			Auth
//	@Param			code	query	string	true	"Authorization code"
//	@Param			state	query	string	true	"State parameter for CSRF protection"
//	@Success		307		"Redirect after login"
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn().
			Str("error", errParam).
			Str("description", c.Query("error_description")).
			Msg("OIDC provider returned error")
		c.JSON(http.StatusBadRequest, gin.H{"error": errParam})
		return
	}

	state := c.Query("state")
	savedState, err := h.sessions.GetOIDCState(c.Request, c.Writer)
	if err != nil || state == "" || state != savedState {
		h.logger.Warn().Err(err).Msg("invalid OIDC state")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.oidc.Exchange(ctx, code)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to exchange authorization code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	claims, err := h.oidc.VerifyIDToken(ctx, token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to verify ID token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	user, err := claims.User()
	if err != nil {
		h.logger.Warn().Err(err).Str("subject", claims.Subject).Msg("ID token does not identify an LMS user")
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication failed"})
		return
	}
	if err := h.users.UpsertUser(ctx, user); err != nil {
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to mirror user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, auth.NewSessionUser(user)); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	h.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Bool("is_staff", user.IsStaff).
		Msg("user logged in")

	c.Redirect(http.StatusTemporaryRedirect, h.redirectURL)
}

// Logout clears the session.
//
//	@Summary		Logout
//	@Tags			Auth
//	@Success		204
//	@Router			/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session")
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user.
//
//	@Summary		Current user
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	UserResponse
//	@Failure		403	{object}	map[string]string
//	@Router			/learning_credentials/v1/me/ [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username, IsStaff: user.IsStaff})
}
