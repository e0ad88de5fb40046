package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/guilhermegsn/finance-control/internal/backend"
	"github.com/guilhermegsn/finance-control/internal/cli"
	apphttp "github.com/guilhermegsn/finance-control/internal/http"
	applog "github.com/guilhermegsn/finance-control/internal/log"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.FromContext(context.Background()).Warn("Could not load .env file", applog.FieldError, err)
	}

	logger := cli.SetupLogger(applog.ComponentApp, false)
	cfg := cli.LoadAndValidateConfig(logger)

	engine, err := backend.NewEngine(context.Background(), cfg, backend.PublisherOptional, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize ledger backend",
			applog.FieldError, err,
			"backend", cfg.LedgerBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:       engine.Backend.Store,
		Months:      engine.Reconciler,
		Balances:    engine.Balances,
		Ledger:      engine.Ledger,
		Logger:      logger,
		RateLimit:   cfg.RateLimitEnabled,
		CORSOrigins: cfg.CORSOrigins,
	})

	ctx, done := cli.GracefulShutdown(logger, backend.CleanupTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := engine.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"publisher", engine.Backend.Publisher != nil,
		"rate_limit", cfg.RateLimitEnabled)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = engine.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
