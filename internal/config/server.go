// Package config loads server configuration from the environment and the
// credential type catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/lms"
	"github.com/MacJediWizard/learning-credentials/internal/notifications"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// EmailBackend selects how notification e-mails are delivered.
type EmailBackend string

const (
	EmailBackendSMTP     EmailBackend = "smtp"
	EmailBackendSendGrid EmailBackend = "sendgrid"
	// EmailBackendNone logs e-mails instead of sending them.
	EmailBackendNone EmailBackend = "none"
)

// OIDCConfig holds the LMS login settings. Login is disabled when Issuer is empty.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether LMS login is configured.
func (c OIDCConfig) Enabled() bool {
	return c.Issuer != ""
}

// EmailConfig holds the notification delivery settings.
type EmailConfig struct {
	Backend      EmailBackend
	PlatformName string
	SMTP         notifications.SMTPConfig
	SendGrid     notifications.SendGridConfig
}

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	LogLevel    string
	Addr        string
	DatabaseURL string
	RedisURL    string

	CORSOrigins       []string
	RateLimitRequests int64
	RateLimitPeriod   string
	MaxUploadBytes    int64

	SessionSecret string
	SessionMaxAge int // seconds

	OIDC    OIDCConfig
	LMS     lms.Config
	Storage storage.Config
	Email   EmailConfig

	WorkerCount              int
	SchedulerRefreshInterval time.Duration
	// GlobalCrontab schedules a generate-all job in addition to the
	// per-configuration tasks. Empty disables it.
	GlobalCrontab string
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		env = EnvDevelopment
	}

	sessionMaxAge := getEnvInt("SESSION_MAX_AGE", 86400)
	if sessionMaxAge < 0 {
		sessionMaxAge = 86400
	}

	workers := getEnvInt("WORKER_COUNT", 4)
	if workers < 1 {
		workers = 4
	}

	email := EmailBackend(strings.ToLower(getEnv("EMAIL_BACKEND", string(EmailBackendNone))))
	smtpFrom := getEnv("SMTP_FROM", "")

	return ServerConfig{
		Environment: env,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Addr:        getEnv("SERVER_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		CORSOrigins:       getEnvList("CORS_ORIGINS"),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 100)),
		RateLimitPeriod:   getEnv("RATE_LIMIT_PERIOD", "1m"),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: sessionMaxAge,

		OIDC: OIDCConfig{
			Issuer:       os.Getenv("OIDC_ISSUER"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		},
		LMS: lms.Config{
			BaseURL:      os.Getenv("LMS_BASE_URL"),
			ClientID:     os.Getenv("LMS_CLIENT_ID"),
			ClientSecret: os.Getenv("LMS_CLIENT_SECRET"),
			Timeout:      getEnvDuration("LMS_TIMEOUT", 30*time.Second),
			RetryCount:   getEnvInt("LMS_RETRY_COUNT", 3),
		},
		Storage: storage.Config{
			Backend: storage.Backend(getEnv("STORAGE_BACKEND", string(storage.BackendLocal))),
			S3: storage.S3Config{
				Endpoint:        os.Getenv("S3_ENDPOINT"),
				Bucket:          os.Getenv("S3_BUCKET"),
				Prefix:          os.Getenv("S3_PREFIX"),
				Region:          getEnv("S3_REGION", "us-east-1"),
				AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
				PublicURL:       os.Getenv("S3_PUBLIC_URL"),
			},
			Local: storage.LocalConfig{
				Dir:     getEnv("LOCAL_STORAGE_DIR", "/var/lib/learning-credentials/media"),
				BaseURL: getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/media"),
			},
		},
		Email: EmailConfig{
			Backend:      email,
			PlatformName: getEnv("PLATFORM_NAME", "Open edX"),
			SMTP: notifications.SMTPConfig{
				Host:     os.Getenv("SMTP_HOST"),
				Port:     getEnvInt("SMTP_PORT", 587),
				Username: os.Getenv("SMTP_USERNAME"),
				Password: os.Getenv("SMTP_PASSWORD"),
				From:     smtpFrom,
				TLS:      getEnvBool("SMTP_TLS", false),
			},
			SendGrid: notifications.SendGridConfig{
				APIKey: os.Getenv("SENDGRID_API_KEY"),
				From:   smtpFrom,
			},
		},

		WorkerCount:              workers,
		SchedulerRefreshInterval: getEnvDuration("SCHEDULER_REFRESH_INTERVAL", time.Minute),
		GlobalCrontab:            os.Getenv("SCHEDULER_GLOBAL_CRONTAB"),
	}
}

// Validate checks the settings the server cannot start without.
func (c *ServerConfig) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.OIDC.Enabled() && len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes when OIDC login is enabled"))
	}
	if c.Environment == EnvProduction && len(c.CORSOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ORIGINS must be set in production"))
	}
	if _, err := time.ParseDuration(c.RateLimitPeriod); err != nil {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_PERIOD %q: %w", c.RateLimitPeriod, err))
	}
	switch c.Email.Backend {
	case EmailBackendSMTP, EmailBackendSendGrid, EmailBackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_BACKEND %q", c.Email.Backend))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
