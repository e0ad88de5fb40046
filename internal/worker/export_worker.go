// Package worker keeps the spreadsheet copy of the ledger current.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guilhermegsn/finance-control/internal/amqp"
	"github.com/guilhermegsn/finance-control/internal/services"
	"github.com/guilhermegsn/finance-control/internal/sheets"
)

// MonthRanger reconciles consecutive months.
type MonthRanger interface {
	ReconcileRange(ctx context.Context, year, month, count int) ([]services.MonthView, error)
}

// Invalidator drops derived balances. Writes happen in another process, so
// every message invalidates before reading.
type Invalidator interface {
	Invalidate()
}

// ExportWorker re-exports the months affected by a ledger change.
type ExportWorker struct {
	months      MonthRanger
	exporter    sheets.MonthExporter
	invalidator Invalidator
	monthsAhead int
	now         func() time.Time
}

func NewExportWorker(months MonthRanger, exporter sheets.MonthExporter, invalidator Invalidator, monthsAhead int) *ExportWorker {
	if monthsAhead < 0 {
		monthsAhead = 0
	}
	return &ExportWorker{
		months:      months,
		exporter:    exporter,
		invalidator: invalidator,
		monthsAhead: monthsAhead,
		now:         time.Now,
	}
}

// HandleLedgerChanged exports the changed month and the months after it,
// whose accumulated balances the change may have shifted. A returned error
// makes the consumer requeue the message.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"operation", msg.Operation,
		"entity_id", msg.EntityID,
		"year", msg.Year,
		"month", msg.Month)

	if err := w.ExportFrom(ctx, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("export after %s: %w", msg.Operation, err)
	}
	return nil
}

// ExportFrom exports (year, month) and the configured months ahead.
func (w *ExportWorker) ExportFrom(ctx context.Context, year, month int) error {
	if w.invalidator != nil {
		w.invalidator.Invalidate()
	}

	start := time.Now()
	views, err := w.months.ReconcileRange(ctx, year, month, 1+w.monthsAhead)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, v := range views {
		ref, err := w.exporter.ExportMonth(ctx, v.Year, v.Month, v.Entries, v.Summary)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export month",
				"year", v.Year,
				"month", v.Month,
				"error", err)
			return fmt.Errorf("export %04d-%02d: %w", v.Year, v.Month, err)
		}
		slog.DebugContext(ctx, "Exported month",
			"year", v.Year,
			"month", v.Month,
			"entries", len(v.Entries),
			"closing_cents", v.Summary.Closing.Cents,
			"ref", ref)
	}

	slog.InfoContext(ctx, "Export completed",
		"year", year,
		"month", month,
		"months", len(views),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// StartupExport refreshes the sheet from the current month onward, covering
// messages missed while the worker was down.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	now := w.now()
	slog.InfoContext(ctx, "Running startup export",
		"year", now.Year(),
		"month", int(now.Month()),
		"months_ahead", w.monthsAhead)
	return w.ExportFrom(ctx, now.Year(), int(now.Month()))
}
