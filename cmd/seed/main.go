package main

import (
	"context"

	"cartsync/internal/config"
	"cartsync/internal/db"
	"cartsync/internal/logging"
	productrepo "cartsync/internal/repository/product"
	"cartsync/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	logger := logging.New(logging.Options{Service: "seed"})
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logging.New(logging.Options{Service: "seed", Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("seed data")
	}
	logger.Info().Int("products", n).Msg("seed data applied")
}
