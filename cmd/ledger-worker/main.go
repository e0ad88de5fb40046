package main

import (
	"context"
	"errors"
	"os"

	"github.com/guilhermegsn/finance-control/internal/backend"
	"github.com/guilhermegsn/finance-control/internal/cli"
	applog "github.com/guilhermegsn/finance-control/internal/log"
	"github.com/guilhermegsn/finance-control/internal/config"
	"github.com/guilhermegsn/finance-control/internal/sheets"
	gsheet "github.com/guilhermegsn/finance-control/internal/sheets/google"
	sheetsmem "github.com/guilhermegsn/finance-control/internal/sheets/memory"
	"github.com/guilhermegsn/finance-control/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.FromContext(context.Background()).Warn("Could not load .env file", applog.FieldError, err)
	}

	logger := cli.SetupLogger(applog.ComponentWorker, false)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid", applog.FieldError, err)
		os.Exit(1)
	}

	// The worker consumes on the same client the engine would publish on.
	engine, err := backend.NewEngine(context.Background(), cfg, backend.PublisherRequired, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", applog.FieldError, err)
		os.Exit(1)
	}
	consumer := engine.Backend.Publisher

	exporter, err := newExporter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", applog.FieldError, err, "target", cfg.ExportTarget)
		_ = engine.Close()
		os.Exit(1)
	}

	w := worker.NewExportWorker(engine.Reconciler, exporter, engine.Balances, cfg.ExportMonthsAhead)

	ctx, done := cli.GracefulShutdown(logger, backend.CleanupTimeout, func(context.Context) {
		if err := engine.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup export...")
	if err := w.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", applog.FieldError, err)
	}

	logger.Info("Consuming ledger changes",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"months_ahead", cfg.ExportMonthsAhead)
	if err := consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		_ = engine.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// newExporter returns the Sheets exporter, or an in-process one when
// EXPORT_TARGET=memory.
func newExporter(ctx context.Context, cfg *config.Config) (sheets.MonthExporter, error) {
	if cfg.ExportTarget == "memory" {
		return sheetsmem.New(cfg.GoogleSheetName), nil
	}
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}
