// Package main applies the credentials database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/db"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dbURL   = flag.String("db", "", "Database URL (or set DATABASE_URL env var)")
		status  = flag.Bool("status", false, "Show applied and pending migrations")
		list    = flag.Bool("list", false, "List embedded migrations without connecting")
		timeout = flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Str("component", "migrate").
		Logger()

	migrations, err := db.GetMigrations()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read embedded migrations")
		return 1
	}

	if *list {
		printMigrations(migrations, nil)
		return 0
	}

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		logger.Error().Msg("database URL required: use -db flag or set DATABASE_URL")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 2
	cfg.MinConns = 1

	database, err := db.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer database.Close()

	if *status {
		applied, err := database.AppliedVersions(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to read applied migrations")
			return 1
		}
		printMigrations(migrations, applied)
		return 0
	}

	pending, err := database.PendingMigrations(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read applied migrations")
		return 1
	}
	logger.Info().Int("available", len(migrations)).Int("pending", len(pending)).Msg("running database migrations")
	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return 1
	}

	version, err := database.CurrentVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not get current version")
		return 0
	}
	logger.Info().Int("version", version).Msg("migrations complete")
	return 0
}

// printMigrations lists migrations. With a nil applied set it prints no
// markers.
func printMigrations(migrations []db.Migration, applied map[int]bool) {
	if len(migrations) == 0 {
		fmt.Println("No migrations found")
		return
	}
	if applied != nil {
		fmt.Printf("Applied: %d of %d\n", len(applied), len(migrations))
	}
	for _, m := range migrations {
		marker := " "
		switch {
		case applied == nil:
		case applied[m.Version]:
			marker = "x"
		default:
			marker = "-"
		}
		fmt.Printf("  [%s] %03d: %s\n", marker, m.Version, m.Name)
	}
}
