package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		logger.Fatalf("Failed to read migrations: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if *dryRun {
		for _, name := range names {
			sql, err := migrations.ReadFile("migrations/" + name)
			if err != nil {
				logger.Fatalf("Failed to read migration %s: %v", name, err)
			}
			fmt.Fprintf(os.Stdout, "-- %s\n%s\n", name, sql)
		}
		return
	}

	logger.Infow("connecting to database", "host", cfg.Postgres.Host)
	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		logger.Fatalf("Failed to create migration table: %v", err)
	}

	for _, name := range names {
		var applied int
		if err := db.GetContext(ctx, &applied,
			`SELECT count(*) FROM schema_migrations WHERE name = $1`, name); err != nil {
			logger.Fatalf("Failed to check migration %s: %v", name, err)
		}
		if applied > 0 {
			logger.Infow("migration already applied", "name", name)
			continue
		}

		sql, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			logger.Fatalf("Failed to read migration %s: %v", name, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			logger.Fatalf("Failed to begin transaction: %v", err)
		}
		if _, err := tx.ExecContext(ctx, string(sql)); err != nil {
			tx.Rollback()
			logger.Fatalf("Failed to apply migration %s: %v", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			tx.Rollback()
			logger.Fatalf("Failed to record migration %s: %v", name, err)
		}
		if err := tx.Commit(); err != nil {
			logger.Fatalf("Failed to commit migration %s: %v", name, err)
		}
		logger.Infow("migration applied", "name", name)
	}

	logger.Info("migrations complete")
}
