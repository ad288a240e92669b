// Command seed imports a legacy recipe catalogue (a JSON array) into the
// HealthyLife database.
//
//	go run ./cmd/seed -file recipes.json
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/azha0089/HealthyLife/internal/config"
	"github.com/azha0089/HealthyLife/internal/repository/postgres"
	"github.com/azha0089/HealthyLife/internal/seed"
	"github.com/azha0089/HealthyLife/migrations"
	"github.com/azha0089/HealthyLife/pkg/database"
	"github.com/azha0089/HealthyLife/pkg/logger"
)

func main() {
	file := flag.String("file", "", "path to the legacy recipe JSON file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.NewWithOptions("healthylife-seed", logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *file == "" {
		log.Error("missing -file flag")
		os.Exit(2)
	}
	if err := run(cfg, *file, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recipes, err := seed.Load(f)
	if err != nil {
		return err
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	_, err = seed.NewImporter(postgres.NewRecipeRepository(pool), log).Run(ctx, recipes)
	return err
}
