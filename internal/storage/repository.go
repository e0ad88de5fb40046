// Package storage is the SQLite implementation of ledger.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Migrations use their own connection and must finish before the pool opens.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("Ledger database opened", "path", dbPath)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (r *SQLiteRepository) View(ctx context.Context, fn func(ledger.Reader) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqlTx{q: r.queries.WithTx(tx)})
}

// Update runs fn in a transaction committed only when fn succeeds. Every
// commit advances the ledger revision, including commits from other
// processes sharing the file.
func (r *SQLiteRepository) Update(ctx context.Context, fn func(ledger.ReadWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}
	q := r.queries.WithTx(tx)
	err = fn(&sqlTx{q: q})
	if err == nil {
		if err = q.BumpRevision(ctx); err != nil {
			err = fmt.Errorf("bump revision: %w", err)
		}
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to rollback transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	q *Queries
}

func (t *sqlTx) Revision(ctx context.Context) (int64, error) {
	rev, err := t.q.GetRevision(ctx)
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (t *sqlTx) ListTransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	rows, err := t.q.ListTransactionsBetween(ctx, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (t *sqlTx) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := t.q.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return toTransaction(row)
}

func (t *sqlTx) ListActiveSeries(ctx context.Context, from, to core.Date) ([]core.RecurringTransaction, error) {
	rows, err := t.q.ListActiveSeries(ctx, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}
	return toSeriesList(rows)
}

func (t *sqlTx) ListSeries(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := t.q.ListSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return toSeriesList(rows)
}

func (t *sqlTx) GetSeries(ctx context.Context, id string) (core.RecurringTransaction, error) {
	row, err := t.q.GetSeries(ctx, id)
	if err != nil {
		return core.RecurringTransaction{}, notFound(err, "series", id)
	}
	return toSeries(row)
}

func (t *sqlTx) ListOverridesForMonth(ctx context.Context, year, month int) ([]core.Override, error) {
	rows, err := t.q.ListOverridesForMonth(ctx, int64(year), int64(month))
	if err != nil {
		return nil, fmt.Errorf("list overrides for month: %w", err)
	}
	return toOverrideList(rows)
}

func (t *sqlTx) FindOverride(ctx context.Context, seriesID string, year, month int) (core.Override, error) {
	row, err := t.q.FindOverride(ctx, seriesID, int64(year), int64(month))
	if err != nil {
		return core.Override{}, notFound(err, "override", seriesID+"@"+core.BalanceID(year, month))
	}
	return toOverride(row)
}

func (t *sqlTx) ListOverridesBefore(ctx context.Context, year, month int) ([]core.Override, error) {
	rows, err := t.q.ListOverridesBefore(ctx, int64(year), int64(month))
	if err != nil {
		return nil, fmt.Errorf("list overrides before month: %w", err)
	}
	return toOverrideList(rows)
}

func (t *sqlTx) ListBalancesBefore(ctx context.Context, year, month int) ([]core.Balance, error) {
	rows, err := t.q.ListBalancesBefore(ctx, int64(year), int64(month))
	if err != nil {
		return nil, fmt.Errorf("list balances before month: %w", err)
	}
	out := make([]core.Balance, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBalance(row))
	}
	return out, nil
}

func (t *sqlTx) GetBalance(ctx context.Context, id string) (core.Balance, error) {
	row, err := t.q.GetBalance(ctx, id)
	if err != nil {
		return core.Balance{}, notFound(err, "balance", id)
	}
	return toBalance(row), nil
}

func (t *sqlTx) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := t.q.CreateTransaction(ctx, fromTransaction(tx)); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	n, err := t.q.UpdateTransaction(ctx, fromTransaction(tx))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ledger.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) CreateSeries(ctx context.Context, s core.RecurringTransaction) error {
	if err := t.q.CreateSeries(ctx, fromSeries(s)); err != nil {
		return fmt.Errorf("create series: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateSeries(ctx context.Context, s core.RecurringTransaction) error {
	n, err := t.q.UpdateSeries(ctx, fromSeries(s))
	if err != nil {
		return fmt.Errorf("update series: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("series %s: %w", s.ID, ledger.ErrNotFound)
	}
	return nil
}

func fromOverride(o core.Override) Override {
	return Override{
		ID:          o.ID,
		ParentID:    o.ParentID,
		Year:        int64(o.Year),
		Month:       int64(o.Month),
		Description: o.Description,
		ValueCents:  o.Value.Cents,
		Type:        string(o.Type),
		Date:        o.Date.Format(dateLayout),
	}
}

func (t *sqlTx) CreateOverride(ctx context.Context, o core.Override) error {
	if err := t.q.CreateOverride(ctx, fromOverride(o)); err != nil {
		return fmt.Errorf("create override: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateOverride(ctx context.Context, o core.Override) error {
	n, err := t.q.UpdateOverride(ctx, fromOverride(o))
	if err != nil {
		return fmt.Errorf("update override: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("override %s: %w", o.ID, ledger.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) SaveBalance(ctx context.Context, b core.Balance) error {
	err := t.q.UpsertBalance(ctx, Balance{
		ID:                  b.ID,
		Year:                int64(b.Year),
		Month:               int64(b.Month),
		IncomeCents:         b.Income.Cents,
		ExpenseCents:        b.Expense.Cents,
		CreditCents:         b.Credit.Cents,
		PartialBalanceCents: b.PartialBalance.Cents,
	})
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date %q: %w", s, err)
	}
	return d, nil
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return parseDate(s.String)
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromTransaction(tx core.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID,
		Description: tx.Description,
		ValueCents:  tx.Value.Cents,
		Type:        string(tx.Type),
		Date:        tx.Date.Format(dateLayout),
	}
}

func toTransaction(row Transaction) (core.Transaction, error) {
	d, err := parseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          row.ID,
		Description: row.Description,
		Value:       core.Money{Cents: row.ValueCents},
		Type:        core.TransactionType(row.Type),
		Date:        d,
	}, nil
}

func fromSeries(s core.RecurringTransaction) RecurringTransaction {
	return RecurringTransaction{
		ID:          s.ID,
		Type:        string(s.Type),
		Description: s.Description,
		ValueCents:  s.Value.Cents,
		StartDate:   s.StartDate.Format(dateLayout),
		EndDate:     nullDate(s.EndDate),
		ParentID:    nullString(s.ParentID),
	}
}

func toSeries(row RecurringTransaction) (core.RecurringTransaction, error) {
	start, err := parseDate(row.StartDate)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	end, err := parseNullDate(row.EndDate)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	return core.RecurringTransaction{
		ID:          row.ID,
		Type:        core.TransactionType(row.Type),
		Description: row.Description,
		Value:       core.Money{Cents: row.ValueCents},
		StartDate:   start,
		EndDate:     end,
		ParentID:    row.ParentID.String,
	}, nil
}

func toSeriesList(rows []RecurringTransaction) ([]core.RecurringTransaction, error) {
	out := make([]core.RecurringTransaction, 0, len(rows))
	for _, row := range rows {
		s, err := toSeries(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toOverride(row Override) (core.Override, error) {
	d, err := parseDate(row.Date)
	if err != nil {
		return core.Override{}, err
	}
	return core.Override{
		ID:          row.ID,
		ParentID:    row.ParentID,
		Year:        int(row.Year),
		Month:       int(row.Month),
		Description: row.Description,
		Value:       core.Money{Cents: row.ValueCents},
		Type:        core.TransactionType(row.Type),
		Date:        d,
	}, nil
}

func toOverrideList(rows []Override) ([]core.Override, error) {
	out := make([]core.Override, 0, len(rows))
	for _, row := range rows {
		o, err := toOverride(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func toBalance(row Balance) core.Balance {
	return core.Balance{
		ID:             row.ID,
		Year:           int(row.Year),
		Month:          int(row.Month),
		Income:         core.Money{Cents: row.IncomeCents},
		Expense:        core.Money{Cents: row.ExpenseCents},
		Credit:         core.Money{Cents: row.CreditCents},
		PartialBalance: core.Money{Cents: row.PartialBalanceCents},
	}
}
