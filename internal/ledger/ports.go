// Package ledger defines the store the engine reads and writes through.
package ledger

import (
	"context"
	"errors"

	"github.com/guilhermegsn/finance-control/internal/core"
)

// ErrNotFound is returned when a record id or key is absent.
var ErrNotFound = errors.New("not found")

// Ports for the persistent ledger. Lists are returned in insertion order.
type (
	Reader interface {
		// Revision counts committed Updates. It changes whenever any writer,
		// in this process or another, commits to the store.
		Revision(ctx context.Context) (int64, error)

		// ListTransactionsBetween returns one-time transactions dated in [from, to].
		ListTransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)

		// ListActiveSeries returns series with StartDate <= to and an empty
		// EndDate or EndDate >= from.
		ListActiveSeries(ctx context.Context, from, to core.Date) ([]core.RecurringTransaction, error)
		ListSeries(ctx context.Context) ([]core.RecurringTransaction, error)
		GetSeries(ctx context.Context, id string) (core.RecurringTransaction, error)

		ListOverridesForMonth(ctx context.Context, year, month int) ([]core.Override, error)
		// FindOverride returns the override for the key or ErrNotFound.
		FindOverride(ctx context.Context, seriesID string, year, month int) (core.Override, error)
		// ListOverridesBefore returns overrides of months strictly before (year, month).
		ListOverridesBefore(ctx context.Context, year, month int) ([]core.Override, error)

		// ListBalancesBefore returns snapshots of months strictly before (year, month).
		ListBalancesBefore(ctx context.Context, year, month int) ([]core.Balance, error)
		GetBalance(ctx context.Context, id string) (core.Balance, error)
	}

	Writer interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		CreateSeries(ctx context.Context, s core.RecurringTransaction) error
		UpdateSeries(ctx context.Context, s core.RecurringTransaction) error
		CreateOverride(ctx context.Context, o core.Override) error
		// UpdateOverride replaces description, value, type and date of the
		// override with o.ID.
		UpdateOverride(ctx context.Context, o core.Override) error
		// SaveBalance inserts or replaces the snapshot with b.ID.
		SaveBalance(ctx context.Context, b core.Balance) error
	}

	ReadWriter interface {
		Reader
		Writer
	}

	// Store runs fn inside one transaction. View is read-only. Update commits
	// when fn returns nil and rolls back otherwise.
	Store interface {
		View(ctx context.Context, fn func(Reader) error) error
		Update(ctx context.Context, fn func(ReadWriter) error) error
		Close() error
	}
)
