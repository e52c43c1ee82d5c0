// Package api provides the HTTP API of the learning credentials server.
package api

import (
	"fmt"

	"github.com/MacJediWizard/learning-credentials/internal/api/handlers"
	"github.com/MacJediWizard/learning-credentials/internal/api/middleware"
	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MacJediWizard/learning-credentials/docs/api"
)

// BasePath is the prefix of the versioned credentials API.
const BasePath = "/api/learning_credentials/v1"

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed outside production.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// MaxUploadBytes caps request bodies on admin routes.
	MaxUploadBytes int64
	// LoginRedirectURL is where users land after logging in.
	LoginRedirectURL string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		MaxUploadBytes:    10 << 20,
		LoginRedirectURL:  "/",
	}
}

// CredentialService is the credentials service as used by the API.
type CredentialService interface {
	handlers.CredentialService
	handlers.AdminService
}

// Deps holds the collaborators of the router. OIDC, Redis and Gatherer are optional.
type Deps struct {
	Credentials CredentialService
	Jobs        handlers.JobSummarizer
	Access      handlers.ContextAccess
	Users       handlers.UserStore
	Database    handlers.DatabaseHealthChecker
	Sessions    *auth.SessionStore
	OIDC        *auth.OIDC
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Deps, logger zerolog.Logger) (*Router, error) {
	if deps.Credentials == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("credentials service and session store are required")
	}

	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.SecurityHeaders())

	cors, err := middleware.CORS(cfg.AllowedOrigins, cfg.Environment)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(cors)

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, deps.Redis)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health, metrics and API docs (no auth required)
	var oidcHealth handlers.OIDCHealthChecker
	var verifier middleware.TokenVerifier
	if deps.OIDC != nil {
		oidcHealth = deps.OIDC
		verifier = deps.OIDC
	}
	handlers.NewHealthHandler(deps.Database, oidcHealth, deps.Gatherer, logger).RegisterPublicRoutes(r.Engine)

	r.Engine.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/api/docs/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	authenticator := middleware.NewAuthenticator(deps.Sessions, verifier, deps.Users, logger)

	var authHandler *handlers.AuthHandler
	if deps.OIDC != nil {
		authHandler = handlers.NewAuthHandler(deps.OIDC, deps.Sessions, deps.Users, cfg.LoginRedirectURL, logger)
		authHandler.RegisterPublicRoutes(r.Engine)
	} else {
		r.logger.Warn().Msg("OIDC not configured, browser login disabled")
	}

	credentialsHandler := handlers.NewCredentialsHandler(deps.Credentials, deps.Access, logger)

	v1 := r.Engine.Group(BasePath)
	credentialsHandler.RegisterPublicRoutes(v1)

	authed := v1.Group("", authenticator.Required())
	credentialsHandler.RegisterRoutes(authed)
	if authHandler != nil {
		authHandler.RegisterRoutes(authed)
	}

	staff := authed.Group("", middleware.RequireStaff(), middleware.BodyLimit(cfg.MaxUploadBytes))
	handlers.NewAdminHandler(deps.Credentials, deps.Jobs, logger).RegisterRoutes(staff)

	r.logger.Info().Str("base_path", BasePath).Msg("API router initialized")
	return r, nil
}
