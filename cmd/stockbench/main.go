package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"stockbench/internal/config"
	"stockbench/internal/database"
	"stockbench/internal/logger"
	"stockbench/internal/marketdata"
	"stockbench/internal/pipeline"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize run-history database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open run-history database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize the market-data client
	client := marketdata.NewClient(&cfg.Provider, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, stopping after current symbol...")
		cancel()
	}()

	// Run the benchmark pipeline; per-symbol failures are absorbed inside.
	engine := pipeline.NewEngine(log, &cfg, client, db)
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("Benchmark run failed", zap.Error(err))
	}

	log.Info("Done.")
}
