// Package main is the entrypoint for the credentialsctl administration CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/config"
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/db"
	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/generators"
	"github.com/MacJediWizard/learning-credentials/internal/jobs"
	"github.com/MacJediWizard/learning-credentials/internal/lms"
	"github.com/MacJediWizard/learning-credentials/internal/notifications"
	"github.com/MacJediWizard/learning-credentials/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg      config.ServerConfig
	logger   zerolog.Logger
	database *db.DB
	queue    *jobs.Queue
	svc      *credentials.Service
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		timeout time.Duration
		a       = &app{}
	)

	rootCmd := &cobra.Command{
		Use:   "credentialsctl",
		Short: "Administer learning credentials",
		Long: `credentialsctl manages credential types, configurations and issued
credentials directly against the credentials database.

Generation commands enqueue jobs that the server's workers run. The
database and storage settings are read from the same environment
variables as the server.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall command timeout")

	// connect is deferred to the commands that need the database.
	connect := func(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		if err := a.open(ctx); err != nil {
			cancel()
			return nil, nil, err
		}
		return ctx, func() {
			a.close()
			cancel()
		}, nil
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newCatalogCmd(a, connect),
		newConfigsCmd(a, connect),
		newGenerateCmd(a, connect),
		newCredentialsCmd(a, connect),
		newAssetsCmd(a, connect),
		newJobsCmd(a, connect),
	)
	return rootCmd
}

type connectFunc func(cmd *cobra.Command) (context.Context, context.CancelFunc, error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("credentialsctl %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}

// open connects to the database and builds the credentials service. The LMS
// client and mailer are optional so that offline commands work without them.
func (a *app) open(ctx context.Context) error {
	a.cfg = config.LoadServerConfig()
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	cfg := db.DefaultConfig(a.cfg.DatabaseURL)
	cfg.MaxConns = 2
	cfg.MinConns = 1
	database, err := db.New(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.database = database

	objects, err := storage.New(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("initialize object storage: %w", err)
	}

	a.queue = jobs.NewQueue(database, jobs.DefaultQueueConfig(), nil, a.logger)

	deps := credentials.Deps{
		Store:       database,
		Retrievers:  eligibility.NewRegistry(),
		Generators:  generators.NewRegistry(),
		Queue:       a.queue,
		Paths:       database,
		ObjectStore: objects,
	}

	if a.cfg.LMS.BaseURL != "" {
		client, err := lms.New(ctx, a.cfg.LMS, database, a.logger)
		if err != nil {
			return fmt.Errorf("initialize LMS client: %w", err)
		}
		eligibility.NewRetriever(client, client, client, database, a.logger).Register(deps.Retrievers)
		deps.Courses = client
	} else {
		// Names stay resolvable so catalogs can be validated offline.
		eligibility.NewRetriever(nil, nil, nil, database, a.logger).Register(deps.Retrievers)
	}

	mailer, err := notifications.NewMailer(notifications.NewLogSender(a.logger), a.cfg.Email.PlatformName, a.logger)
	if err != nil {
		return fmt.Errorf("initialize mailer: %w", err)
	}
	deps.Mailer = mailer

	a.svc = credentials.NewService(deps, a.logger)
	generators.NewImageGenerator(objects, a.svc, a.logger).Register(deps.Generators)
	return nil
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}
