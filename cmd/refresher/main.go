package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/db"
	"github.com/bmbroch/payops/internal/refresh"
	"github.com/bmbroch/payops/internal/scrape"
	"github.com/bmbroch/payops/pkg/config"
	"github.com/bmbroch/payops/pkg/logging"
	"github.com/bmbroch/payops/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Payops View Refresher")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	store := db.NewStore(database)

	// View-count source
	client, err := scrape.New(&cfg.Scraper)
	if err != nil {
		logger.Fatal("Failed to create scrape client", zap.Error(err))
	}

	// Cap a scheduled pass well below the shortest sensible schedule
	refresher := refresh.NewRefresher(store, client, cfg.Refresher.MaxWorkers, time.Hour)

	manager := refresh.NewManager(refresher, cfg.Refresher.Schedule)
	if err := manager.RegisterJobs(); err != nil {
		logger.Fatal("Failed to register refresh job", zap.Error(err))
	}

	if cfg.Refresher.RunOnStart {
		logger.Info("Running initial refresh pass")
		if err := refresher.RefreshAll(context.Background()); err != nil {
			logger.Error("Initial refresh pass failed", zap.Error(err))
		}
	}

	manager.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down refresher...")
	manager.Stop()
	logger.Info("Refresher exited")
}
