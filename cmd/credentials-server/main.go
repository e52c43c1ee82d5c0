// Package main is the entrypoint for the learning credentials server.
//
// @title           Learning Credentials API
// @version         1.0
// @description     Issues, verifies and manages learning credentials for courses and learning paths.
//
// @contact.name   Learning Credentials Maintainers
// @contact.url    https://github.com/MacJediWizard/learning-credentials
//
// @license.name  AGPL-3.0
// @license.url   https://www.gnu.org/licenses/agpl-3.0.html
//
// @host      localhost:8080
// @BasePath  /api
//
// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name learning_credentials_session
// @description Session cookie set by the login flow
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description LMS-issued OpenID Connect ID token. Use format: Bearer <token>
//
// @tag.name Credentials
// @tag.description Credential configuration, eligibility and issued credentials
// @tag.name Admin
// @tag.description Staff operations on configurations, credentials and assets
// @tag.name Auth
// @tag.description LMS login
// @tag.name Monitoring
// @tag.description Health checks and metrics
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/api"
	"github.com/MacJediWizard/learning-credentials/internal/api/handlers"
	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/db"
	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/generators"
	"github.com/MacJediWizard/learning-credentials/internal/jobs"
	"github.com/MacJediWizard/learning-credentials/internal/lms"
	"github.com/MacJediWizard/learning-credentials/internal/metrics"
	"github.com/MacJediWizard/learning-credentials/internal/notifications"
	"github.com/MacJediWizard/learning-credentials/internal/scheduler"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadServerConfig()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if cfg.Environment != config.EnvProduction {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Str("environment", string(cfg.Environment)).
		Msg("Starting learning credentials server")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Connect to database
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Msg("Failed to connect to Redis")
			return 1
		}
		logger.Info().Msg("Rate limiting backed by Redis")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := metrics.NewPrometheusMetrics(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	objects, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize object storage")
		return 1
	}

	lmsClient, err := lms.New(ctx, cfg.LMS, database, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize LMS client")
		return 1
	}

	mailer, err := newMailer(cfg.Email, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize mailer")
		return 1
	}

	queueCfg := jobs.DefaultQueueConfig()
	queueCfg.WorkerCount = cfg.WorkerCount
	queue := jobs.NewQueue(database, queueCfg, promMetrics, logger)

	retrievers := eligibility.NewRegistry()
	eligibility.NewRetriever(lmsClient, lmsClient, lmsClient, database, logger).Register(retrievers)
	gens := generators.NewRegistry()

	svc := credentials.NewService(credentials.Deps{
		Store:       database,
		Retrievers:  retrievers,
		Generators:  gens,
		Queue:       queue,
		Mailer:      mailer,
		Courses:     lmsClient,
		Paths:       database,
		ObjectStore: objects,
		Metrics:     promMetrics,
	}, logger)
	generators.NewImageGenerator(objects, svc, logger).Register(gens)
	svc.RegisterHandlers(queue)

	if err := queue.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start job queue")
		return 1
	}
	defer queue.Stop()

	schedCfg := scheduler.DefaultConfig()
	schedCfg.RefreshInterval = cfg.SchedulerRefreshInterval
	schedCfg.GlobalCrontab = cfg.GlobalCrontab
	sched := scheduler.New(database, queue, schedCfg, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return 1
	}
	defer sched.Stop()

	collector := metrics.NewCollector(database, promMetrics, 30*time.Second, logger)
	collector.Start(ctx)
	defer collector.Stop()

	// Sessions and LMS login
	sessionSecret := []byte(cfg.SessionSecret)
	if len(sessionSecret) == 0 {
		logger.Warn().Msg("SESSION_SECRET not set, using an ephemeral secret")
		sessionSecret = make([]byte, 32)
		if _, err := rand.Read(sessionSecret); err != nil {
			logger.Error().Err(err).Msg("Failed to generate session secret")
			return 1
		}
	}
	sessionCfg := auth.DefaultSessionConfig(sessionSecret, cfg.Environment == config.EnvProduction)
	sessionCfg.MaxAge = cfg.SessionMaxAge
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	var oidcProvider *auth.OIDC
	if cfg.OIDC.Enabled() {
		oidcProvider, err = auth.NewOIDC(ctx, auth.DefaultOIDCConfig(
			cfg.OIDC.Issuer,
			cfg.OIDC.ClientID,
			cfg.OIDC.ClientSecret,
			cfg.OIDC.RedirectURL,
		), logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize OIDC provider")
			return 1
		}
		logger.Info().Str("issuer", cfg.OIDC.Issuer).Msg("OIDC provider initialized")
	}

	routerCfg := api.DefaultConfig()
	routerCfg.Environment = cfg.Environment
	routerCfg.AllowedOrigins = cfg.CORSOrigins
	routerCfg.RateLimitRequests = cfg.RateLimitRequests
	routerCfg.RateLimitPeriod = cfg.RateLimitPeriod
	routerCfg.MaxUploadBytes = cfg.MaxUploadBytes

	router, err := api.NewRouter(routerCfg, api.Deps{
		Credentials: svc,
		Jobs:        queue,
		Access:      handlers.NewAccessChecker(lmsClient, database, logger),
		Users:       database,
		Database:    database,
		Sessions:    sessions,
		OIDC:        oidcProvider,
		Redis:       redisClient,
		Gatherer:    registry,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server error")
		return 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}

func newMailer(cfg config.EmailConfig, logger zerolog.Logger) (*notifications.Mailer, error) {
	var sender notifications.Sender
	switch cfg.Backend {
	case config.EmailBackendSMTP:
		s, err := notifications.NewSMTPSender(cfg.SMTP, logger)
		if err != nil {
			return nil, err
		}
		sender = s
	case config.EmailBackendSendGrid:
		s, err := notifications.NewSendGridSender(cfg.SendGrid, logger)
		if err != nil {
			return nil, err
		}
		sender = s
	default:
		sender = notifications.NewLogSender(logger)
	}
	return notifications.NewMailer(sender, cfg.PlatformName, logger)
}
