package main

import (
	"context"
	"flag"

	"cartsync/internal/config"
	"cartsync/internal/db"
	"cartsync/internal/logging"
	"cartsync/internal/migrate"

	"github.com/joho/godotenv"
)

func main() {
	down := flag.Bool("down", false, "drop all tables instead of migrating up")
	flag.Parse()

	logger := logging.New(logging.Options{Service: "migrate"})
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logging.New(logging.Options{Service: "migrate", Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if *down {
		if err := migrate.Reset(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("reset schema")
		}
		logger.Info().Msg("schema dropped")
		return
	}
	if err := migrate.Apply(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	logger.Info().Msg("migrations applied")
}
