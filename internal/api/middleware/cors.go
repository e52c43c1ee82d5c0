package middleware

import (
	"fmt"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing for
// the LMS frontends. Empty allowedOrigins allows all origins outside production
// and is an error in production.
func CORS(allowedOrigins []string, env config.Environment) (gin.HandlerFunc, error) {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Requested-With", "X-CSRFToken"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	if len(allowedOrigins) == 0 {
		if env == config.EnvProduction {
			return nil, fmt.Errorf("CORS_ORIGINS must be set in production")
		}
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = allowedOrigins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CORS config: %w", err)
	}
	return cors.New(cfg), nil
}
