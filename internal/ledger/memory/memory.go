// Package memory is an in-process ledger.Store used by tests and the
// memory backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

type state struct {
	txs       []core.Transaction
	series    []core.RecurringTransaction
	overrides []core.Override
	balances  []core.Balance
	revision  int64
}

func (s *state) clone() *state {
	return &state{
		revision:  s.revision,
		txs:       append([]core.Transaction(nil), s.txs...),
		series:    append([]core.RecurringTransaction(nil), s.series...),
		overrides: append([]core.Override(nil), s.overrides...),
		balances:  append([]core.Balance(nil), s.balances...),
	}
}

// Store keeps the ledger in memory. Update works on a copy that replaces the
// current state only when fn succeeds, so a failed write leaves no trace.
type Store struct {
	mu     sync.RWMutex
	cur    *state
	closed bool
}

func New() *Store {
	return &Store{cur: &state{}}
}

func (s *Store) View(ctx context.Context, fn func(ledger.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory store closed")
	}
	return fn(&tx{st: s.cur})
}

func (s *Store) Update(ctx context.Context, fn func(ledger.ReadWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store closed")
	}
	next := s.cur.clone()
	if err := fn(&tx{st: next, writable: true}); err != nil {
		return err
	}
	next.revision++
	s.cur = next
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type tx struct {
	st       *state
	writable bool
}

func (t *tx) Revision(context.Context) (int64, error) {
	return t.st.revision, nil
}

func (t *tx) ListTransactionsBetween(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, v := range t.st.txs {
		if !v.Date.Before(from.Time) && !v.Date.After(to.Time) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *tx) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	for _, v := range t.st.txs {
		if v.ID == id {
			return v, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
}

func (t *tx) ListActiveSeries(_ context.Context, from, to core.Date) ([]core.RecurringTransaction, error) {
	var out []core.RecurringTransaction
	for _, v := range t.st.series {
		if v.StartDate.After(to.Time) {
			continue
		}
		if !v.EndDate.IsZero() && v.EndDate.Before(from.Time) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *tx) ListSeries(_ context.Context) ([]core.RecurringTransaction, error) {
	return append([]core.RecurringTransaction(nil), t.st.series...), nil
}

func (t *tx) GetSeries(_ context.Context, id string) (core.RecurringTransaction, error) {
	for _, v := range t.st.series {
		if v.ID == id {
			return v, nil
		}
	}
	return core.RecurringTransaction{}, fmt.Errorf("series %s: %w", id, ledger.ErrNotFound)
}

func (t *tx) ListOverridesForMonth(_ context.Context, year, month int) ([]core.Override, error) {
	var out []core.Override
	for _, v := range t.st.overrides {
		if v.Year == year && v.Month == month {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *tx) FindOverride(_ context.Context, seriesID string, year, month int) (core.Override, error) {
	for _, v := range t.st.overrides {
		if v.ParentID == seriesID && v.Year == year && v.Month == month {
			return v, nil
		}
	}
	return core.Override{}, fmt.Errorf("override %s %s: %w", seriesID, core.BalanceID(year, month), ledger.ErrNotFound)
}

func (t *tx) ListOverridesBefore(_ context.Context, year, month int) ([]core.Override, error) {
	limit := core.MonthIndex(year, month)
	var out []core.Override
	for _, v := range t.st.overrides {
		if core.MonthIndex(v.Year, v.Month) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *tx) ListBalancesBefore(_ context.Context, year, month int) ([]core.Balance, error) {
	limit := core.MonthIndex(year, month)
	var out []core.Balance
	for _, v := range t.st.balances {
		if core.MonthIndex(v.Year, v.Month) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *tx) GetBalance(_ context.Context, id string) (core.Balance, error) {
	for _, v := range t.st.balances {
		if v.ID == id {
			return v, nil
		}
	}
	return core.Balance{}, fmt.Errorf("balance %s: %w", id, ledger.ErrNotFound)
}

func (t *tx) CreateTransaction(_ context.Context, v core.Transaction) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for _, cur := range t.st.txs {
		if cur.ID == v.ID {
			return fmt.Errorf("transaction %s already exists", v.ID)
		}
	}
	t.st.txs = append(t.st.txs, v)
	return nil
}

func (t *tx) UpdateTransaction(_ context.Context, v core.Transaction) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for i, cur := range t.st.txs {
		if cur.ID == v.ID {
			t.st.txs[i] = v
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", v.ID, ledger.ErrNotFound)
}

func (t *tx) CreateSeries(_ context.Context, v core.RecurringTransaction) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for _, cur := range t.st.series {
		if cur.ID == v.ID {
			return fmt.Errorf("series %s already exists", v.ID)
		}
	}
	t.st.series = append(t.st.series, v)
	return nil
}

func (t *tx) UpdateSeries(_ context.Context, v core.RecurringTransaction) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for i, cur := range t.st.series {
		if cur.ID == v.ID {
			t.st.series[i] = v
			return nil
		}
	}
	return fmt.Errorf("series %s: %w", v.ID, ledger.ErrNotFound)
}

func (t *tx) CreateOverride(_ context.Context, v core.Override) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	t.st.overrides = append(t.st.overrides, v)
	return nil
}

func (t *tx) UpdateOverride(_ context.Context, v core.Override) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for i, cur := range t.st.overrides {
		if cur.ID == v.ID {
			t.st.overrides[i] = v
			return nil
		}
	}
	return fmt.Errorf("override %s: %w", v.ID, ledger.ErrNotFound)
}

func (t *tx) SaveBalance(_ context.Context, v core.Balance) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	for i, cur := range t.st.balances {
		if cur.ID == v.ID {
			t.st.balances[i] = v
			return nil
		}
	}
	t.st.balances = append(t.st.balances, v)
	return nil
}

func (t *tx) checkWrite() error {
	if !t.writable {
		return fmt.Errorf("write in read-only transaction")
	}
	return nil
}
