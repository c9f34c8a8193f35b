package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cartsync/internal/config"
	"cartsync/internal/db"
	"cartsync/internal/importer"
	"cartsync/internal/logging"
	productrepo "cartsync/internal/repository/product"

	"github.com/joho/godotenv"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to product CSV (id,key,name,description,price,image)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.New(logging.Options{Service: "importer"})
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logging.New(logging.Options{Service: "importer", Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	start := time.Now()
	count, err := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, logger)).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Int("imported", count).Msg("import finished with errors")
	}
	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		os.Exit(1)
	}
}
