package storage

import (
	"context"
	"database/sql"
)

const createTransaction = `
INSERT INTO transactions (id, description, value_cents, type, date)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.Description, arg.ValueCents, arg.Type, arg.Date)
	return err
}

const updateTransaction = `
UPDATE transactions SET description = ?, value_cents = ?, type = ?, date = ?
WHERE id = ?
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Description, arg.ValueCents, arg.Type, arg.Date, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `
SELECT id, description, value_cents, type, date FROM transactions WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(&i.ID, &i.Description, &i.ValueCents, &i.Type, &i.Date)
	return i, err
}

const listTransactionsBetween = `
SELECT id, description, value_cents, type, date FROM transactions
WHERE date >= ? AND date <= ?
ORDER BY rowid
`

func (q *Queries) ListTransactionsBetween(ctx context.Context, from, to string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Description, &i.ValueCents, &i.Type, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSeries = `
INSERT INTO recurring_transactions (id, type, description, value_cents, start_date, end_date, parent_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateSeries(ctx context.Context, arg RecurringTransaction) error {
	_, err := q.db.ExecContext(ctx, createSeries,
		arg.ID, arg.Type, arg.Description, arg.ValueCents, arg.StartDate, arg.EndDate, arg.ParentID)
	return err
}

const updateSeries = `
UPDATE recurring_transactions
SET type = ?, description = ?, value_cents = ?, start_date = ?, end_date = ?, parent_id = ?
WHERE id = ?
`

func (q *Queries) UpdateSeries(ctx context.Context, arg RecurringTransaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSeries,
		arg.Type, arg.Description, arg.ValueCents, arg.StartDate, arg.EndDate, arg.ParentID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const seriesColumns = `id, type, description, value_cents, start_date, end_date, parent_id`

const getSeries = `SELECT ` + seriesColumns + ` FROM recurring_transactions WHERE id = ?`

func (q *Queries) GetSeries(ctx context.Context, id string) (RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, getSeries, id)
	var i RecurringTransaction
	err := row.Scan(&i.ID, &i.Type, &i.Description, &i.ValueCents, &i.StartDate, &i.EndDate, &i.ParentID)
	return i, err
}

const listSeries = `SELECT ` + seriesColumns + ` FROM recurring_transactions ORDER BY rowid`

func (q *Queries) ListSeries(ctx context.Context) ([]RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listSeries)
	if err != nil {
		return nil, err
	}
	return scanSeries(rows)
}

const listActiveSeries = `SELECT ` + seriesColumns + ` FROM recurring_transactions
WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
ORDER BY rowid`

func (q *Queries) ListActiveSeries(ctx context.Context, from, to string) ([]RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSeries, to, from)
	if err != nil {
		return nil, err
	}
	return scanSeries(rows)
}

func scanSeries(rows *sql.Rows) ([]RecurringTransaction, error) {
	defer rows.Close()
	var items []RecurringTransaction
	for rows.Next() {
		var i RecurringTransaction
		if err := rows.Scan(&i.ID, &i.Type, &i.Description, &i.ValueCents, &i.StartDate, &i.EndDate, &i.ParentID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOverride = `
INSERT INTO overrides (id, parent_id, year, month, description, value_cents, type, date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateOverride(ctx context.Context, arg Override) error {
	_, err := q.db.ExecContext(ctx, createOverride,
		arg.ID, arg.ParentID, arg.Year, arg.Month, arg.Description, arg.ValueCents, arg.Type, arg.Date)
	return err
}

const updateOverride = `
UPDATE overrides SET description = ?, value_cents = ?, type = ?, date = ?
WHERE id = ?
`

func (q *Queries) UpdateOverride(ctx context.Context, arg Override) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateOverride,
		arg.Description, arg.ValueCents, arg.Type, arg.Date, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const overrideColumns = `id, parent_id, year, month, description, value_cents, type, date`

const findOverride = `SELECT ` + overrideColumns + ` FROM overrides
WHERE parent_id = ? AND year = ? AND month = ?
ORDER BY rowid LIMIT 1`

func (q *Queries) FindOverride(ctx context.Context, parentID string, year, month int64) (Override, error) {
	row := q.db.QueryRowContext(ctx, findOverride, parentID, year, month)
	var i Override
	err := row.Scan(&i.ID, &i.ParentID, &i.Year, &i.Month, &i.Description, &i.ValueCents, &i.Type, &i.Date)
	return i, err
}

const listOverridesForMonth = `SELECT ` + overrideColumns + ` FROM overrides
WHERE year = ? AND month = ?
ORDER BY rowid`

func (q *Queries) ListOverridesForMonth(ctx context.Context, year, month int64) ([]Override, error) {
	rows, err := q.db.QueryContext(ctx, listOverridesForMonth, year, month)
	if err != nil {
		return nil, err
	}
	return scanOverrides(rows)
}

const listOverridesBefore = `SELECT ` + overrideColumns + ` FROM overrides
WHERE year < ? OR (year = ? AND month < ?)
ORDER BY rowid`

func (q *Queries) ListOverridesBefore(ctx context.Context, year, month int64) ([]Override, error) {
	rows, err := q.db.QueryContext(ctx, listOverridesBefore, year, year, month)
	if err != nil {
		return nil, err
	}
	return scanOverrides(rows)
}

func scanOverrides(rows *sql.Rows) ([]Override, error) {
	defer rows.Close()
	var items []Override
	for rows.Next() {
		var i Override
		if err := rows.Scan(&i.ID, &i.ParentID, &i.Year, &i.Month, &i.Description, &i.ValueCents, &i.Type, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBalance = `
INSERT INTO balances (id, year, month, income_cents, expense_cents, credit_cents, partial_balance_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    income_cents = excluded.income_cents,
    expense_cents = excluded.expense_cents,
    credit_cents = excluded.credit_cents,
    partial_balance_cents = excluded.partial_balance_cents
`

func (q *Queries) UpsertBalance(ctx context.Context, arg Balance) error {
	_, err := q.db.ExecContext(ctx, upsertBalance,
		arg.ID, arg.Year, arg.Month, arg.IncomeCents, arg.ExpenseCents, arg.CreditCents, arg.PartialBalanceCents)
	return err
}

const balanceColumns = `id, year, month, income_cents, expense_cents, credit_cents, partial_balance_cents`

const getBalance = `SELECT ` + balanceColumns + ` FROM balances WHERE id = ?`

func (q *Queries) GetBalance(ctx context.Context, id string) (Balance, error) {
	row := q.db.QueryRowContext(ctx, getBalance, id)
	var i Balance
	err := row.Scan(&i.ID, &i.Year, &i.Month, &i.IncomeCents, &i.ExpenseCents, &i.CreditCents, &i.PartialBalanceCents)
	return i, err
}

const listBalancesBefore = `SELECT ` + balanceColumns + ` FROM balances
WHERE year < ? OR (year = ? AND month < ?)
ORDER BY year, month`

func (q *Queries) ListBalancesBefore(ctx context.Context, year, month int64) ([]Balance, error) {
	rows, err := q.db.QueryContext(ctx, listBalancesBefore, year, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Balance
	for rows.Next() {
		var i Balance
		if err := rows.Scan(&i.ID, &i.Year, &i.Month, &i.IncomeCents, &i.ExpenseCents, &i.CreditCents, &i.PartialBalanceCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRevision = `SELECT revision FROM ledger_revision WHERE id = 1`

func (q *Queries) GetRevision(ctx context.Context) (int64, error) {
	var rev int64
	err := q.db.QueryRowContext(ctx, getRevision).Scan(&rev)
	return rev, err
}

const bumpRevision = `UPDATE ledger_revision SET revision = revision + 1 WHERE id = 1`

func (q *Queries) BumpRevision(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, bumpRevision)
	return err
}
