package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimdex/internal/config"
	"grimdex/internal/logging"
	"grimdex/internal/service"
)

func main() {
	// 0. Parse Command Line Flags
	runWebhook := flag.Bool("webhook", false, "Run Webhook Service")
	runFeed := flag.Bool("feed", false, "Run Feed Service")
	runAll := flag.Bool("all", false, "Run All Services")
	flag.Parse()

	// Default to running all if no specific flags are provided or if --all is set
	if *runAll || (!*runWebhook && !*runFeed) {
		*runWebhook = true
		*runFeed = true
	}

	// 1. Load Configuration
	cfg := config.LoadConfig()

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	logger := slog.Default()
	logger.Info("starting grimdex services",
		"webhook", *runWebhook,
		"feed", *runFeed)

	// 2. Initialize Service Manager
	opts := service.Options{
		RunWebhook: *runWebhook,
		RunFeed:    *runFeed,
	}
	mgr := service.NewManager(cfg, opts, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mgr.Init(ctx); err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	// 3. Start Services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	mgr.Start(bgCtx)

	// 4. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Cancel background tasks first
	bgCancel()

	mgr.Shutdown(shutdownCtx)

	logger.Info("all services stopped")
}
