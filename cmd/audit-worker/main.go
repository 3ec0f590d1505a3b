package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/itsmibrahim123/ExpenseManager/internal/config"
	"github.com/itsmibrahim123/ExpenseManager/internal/events"
	applog "github.com/itsmibrahim123/ExpenseManager/internal/log"
	"github.com/itsmibrahim123/ExpenseManager/internal/storage"
	"github.com/itsmibrahim123/ExpenseManager/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("worker")
	applog.SetDefault(logger)

	logger.Info("Starting audit-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	consumer, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to broker", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer consumer.Close()
	logger.Info("Connected to broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	auditWorker := worker.NewAuditWorker(consumer, store.Stores().Audits)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := auditWorker.Start(ctx); err != nil {
		logger.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return auditWorker.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Worker shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
