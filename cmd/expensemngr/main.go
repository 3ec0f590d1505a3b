package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/itsmibrahim123/ExpenseManager/internal/config"
	"github.com/itsmibrahim123/ExpenseManager/internal/events"
	apphttp "github.com/itsmibrahim123/ExpenseManager/internal/http"
	applog "github.com/itsmibrahim123/ExpenseManager/internal/log"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
	"github.com/itsmibrahim123/ExpenseManager/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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
	logger.Info("Database ready", "path", cfg.SQLiteDBPath)

	// Events are best effort: the API keeps serving when the broker is down,
	// at the cost of missing audit rows.
	var publisher services.Publisher
	eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Event publishing disabled", "error", err)
	} else {
		publisher = eventsClient
		defer eventsClient.Close()
		logger.Info("Event publisher connected", "exchange", cfg.AMQPExchange)
	}

	stores := store.Stores()
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Accounts:           services.NewAccountService(store, stores),
		Transactions:       services.NewTransactionService(store, stores, publisher),
		Rules:              services.NewRecurringRuleService(store, stores),
		Budgets:            services.NewBudgetService(store, stores),
		Categories:         services.NewCategoryService(store, stores),
		Dashboard:          services.NewDashboardService(stores),
		Export:             services.NewExportService(stores),
		Audits:             stores.Audits,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting expensemngr server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
