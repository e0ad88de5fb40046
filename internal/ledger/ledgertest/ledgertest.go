// Package ledgertest checks any ledger.Store against the behaviour the
// engine relies on.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// Run exercises a fresh store from newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Run("UpdateRollsBackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Queries", func(t *testing.T) { testQueries(t, newStore(t)) })
	t.Run("UpdateMissingRecord", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("SeriesRoundTrip", func(t *testing.T) { testSeriesRoundTrip(t, newStore(t)) })
	t.Run("RevisionAdvancesOnCommit", func(t *testing.T) { testRevision(t, newStore(t)) })
	t.Run("UpdateOverrideInPlace", func(t *testing.T) { testUpdateOverride(t, newStore(t)) })
}

func revisionOf(t *testing.T, s ledger.Store) int64 {
	t.Helper()
	ctx := context.Background()
	var rev int64
	err := s.View(ctx, func(r ledger.Reader) error {
		var err error
		rev, err = r.Revision(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("read revision: %v", err)
	}
	return rev
}

func testRevision(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	start := revisionOf(t, s)

	if err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		return rw.CreateTransaction(ctx, transaction("t1", core.NewDate(2024, 1, 10)))
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	committed := revisionOf(t, s)
	if committed <= start {
		t.Fatalf("revision after commit = %d, want > %d", committed, start)
	}

	_ = s.Update(ctx, func(rw ledger.ReadWriter) error {
		if err := rw.CreateTransaction(ctx, transaction("t2", core.NewDate(2024, 1, 11))); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if got := revisionOf(t, s); got != committed {
		t.Errorf("revision after rollback = %d, want %d", got, committed)
	}
}

func testUpdateOverride(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		if err := rw.CreateOverride(ctx, override("o1", "s1", 2024, 2)); err != nil {
			return err
		}
		o := override("o1", "s1", 2024, 2)
		o.Description = "edited"
		o.Value = core.Money{Cents: 750}
		o.Type = core.Income
		o.Date = core.NewDate(2024, 2, 20)
		return rw.UpdateOverride(ctx, o)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.View(ctx, func(r ledger.Reader) error {
		got, err := r.FindOverride(ctx, "s1", 2024, 2)
		if err != nil {
			return err
		}
		if got.ID != "o1" || got.Description != "edited" || got.Value.Cents != 750 ||
			got.Type != core.Income || got.Date.String() != "2024-02-20" {
			t.Errorf("unexpected override %+v", got)
		}
		feb, err := r.ListOverridesForMonth(ctx, 2024, 2)
		if err != nil {
			return err
		}
		if len(feb) != 1 {
			t.Errorf("expected one february override, got %+v", feb)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	err = s.Update(ctx, func(rw ledger.ReadWriter) error {
		return rw.UpdateOverride(ctx, override("missing", "s1", 2024, 3))
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing override, got %v", err)
	}
}

func testRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		if err := rw.CreateSeries(ctx, series("s1", core.NewDate(2024, 1, 1), core.Date{})); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(ctx, func(r ledger.Reader) error {
		_, err := r.GetSeries(ctx, "s1")
		return err
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected series to be rolled back, got %v", err)
	}
}

func testQueries(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		for _, tx := range []core.Transaction{
			transaction("t1", core.NewDate(2024, 1, 31)),
			transaction("t2", core.NewDate(2024, 2, 1)),
			transaction("t3", core.NewDate(2024, 2, 29)),
		} {
			if err := rw.CreateTransaction(ctx, tx); err != nil {
				return err
			}
		}
		for _, sr := range []core.RecurringTransaction{
			series("old", core.NewDate(2023, 1, 1), core.NewDate(2024, 1, 31)),
			series("open", core.NewDate(2024, 2, 29), core.Date{}),
			series("later", core.NewDate(2024, 3, 1), core.Date{}),
		} {
			if err := rw.CreateSeries(ctx, sr); err != nil {
				return err
			}
		}
		for _, o := range []core.Override{
			override("o1", "open", 2024, 2),
			override("o2", "open", 2024, 2),
			override("o3", "open", 2023, 12),
		} {
			if err := rw.CreateOverride(ctx, o); err != nil {
				return err
			}
		}
		b := core.NewBalance(2024, 1)
		b.Apply(core.Income, core.Money{Cents: 100})
		if err := rw.SaveBalance(ctx, b); err != nil {
			return err
		}
		b.Apply(core.Income, core.Money{Cents: 100})
		return rw.SaveBalance(ctx, b)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = s.View(ctx, func(r ledger.Reader) error {
		txs, err := r.ListTransactionsBetween(ctx, core.MonthStart(2024, 2), core.MonthEnd(2024, 2))
		if err != nil {
			return err
		}
		if len(txs) != 2 || txs[0].ID != "t2" || txs[1].ID != "t3" {
			t.Errorf("unexpected february transactions %+v", txs)
		}

		active, err := r.ListActiveSeries(ctx, core.MonthStart(2024, 2), core.MonthEnd(2024, 2))
		if err != nil {
			return err
		}
		if len(active) != 1 || active[0].ID != "open" {
			t.Errorf("unexpected february series %+v", active)
		}

		all, err := r.ListSeries(ctx)
		if err != nil {
			return err
		}
		if len(all) != 3 || all[0].ID != "old" || all[2].ID != "later" {
			t.Errorf("expected series in insertion order, got %+v", all)
		}

		o, err := r.FindOverride(ctx, "open", 2024, 2)
		if err != nil || o.ID != "o1" {
			t.Errorf("expected first override o1, got %q (%v)", o.ID, err)
		}
		if _, err := r.FindOverride(ctx, "open", 2024, 3); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing override, got %v", err)
		}
		month, err := r.ListOverridesForMonth(ctx, 2024, 2)
		if err != nil {
			return err
		}
		if len(month) != 2 || month[0].ID != "o1" {
			t.Errorf("unexpected february overrides %+v", month)
		}
		before, err := r.ListOverridesBefore(ctx, 2024, 2)
		if err != nil {
			return err
		}
		if len(before) != 1 || before[0].ID != "o3" {
			t.Errorf("unexpected overrides before february %+v", before)
		}

		balances, err := r.ListBalancesBefore(ctx, 2024, 2)
		if err != nil {
			return err
		}
		if len(balances) != 1 || balances[0].PartialBalance.Cents != 200 {
			t.Errorf("expected one upserted balance of 200, got %+v", balances)
		}
		if none, _ := r.ListBalancesBefore(ctx, 2024, 1); len(none) != 0 {
			t.Errorf("expected no balances before january, got %+v", none)
		}
		b, err := r.GetBalance(ctx, "2024-01")
		if err != nil || b.Income.Cents != 200 {
			t.Errorf("expected balance income 200, got %+v (%v)", b, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func testMissing(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		return rw.UpdateTransaction(ctx, transaction("missing", core.NewDate(2024, 1, 1)))
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	err = s.View(ctx, func(r ledger.Reader) error {
		_, err := r.GetTransaction(ctx, "missing")
		return err
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
}

func testSeriesRoundTrip(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	succ := series("succ", core.NewDate(2024, 6, 1), core.Date{})
	succ.ParentID = "pred"
	err := s.Update(ctx, func(rw ledger.ReadWriter) error {
		if err := rw.CreateSeries(ctx, series("pred", core.NewDate(2024, 1, 31), core.Date{})); err != nil {
			return err
		}
		if err := rw.CreateSeries(ctx, succ); err != nil {
			return err
		}
		pred, err := rw.GetSeries(ctx, "pred")
		if err != nil {
			return err
		}
		pred.EndDate = core.NewDate(2024, 6, 15)
		return rw.UpdateSeries(ctx, pred)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = s.View(ctx, func(r ledger.Reader) error {
		pred, err := r.GetSeries(ctx, "pred")
		if err != nil {
			return err
		}
		if pred.EndDate.String() != "2024-06-15" || pred.ParentID != "" {
			t.Errorf("unexpected predecessor %+v", pred)
		}
		got, err := r.GetSeries(ctx, "succ")
		if err != nil {
			return err
		}
		if got.ParentID != "pred" || !got.EndDate.IsEmpty() || got.Value != succ.Value {
			t.Errorf("unexpected successor %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func transaction(id string, d core.Date) core.Transaction {
	return core.Transaction{ID: id, Description: "tx " + id, Value: core.Money{Cents: 100}, Type: core.Income, Date: d}
}

func series(id string, start, end core.Date) core.RecurringTransaction {
	return core.RecurringTransaction{
		ID:          id,
		Type:        core.Expense,
		Description: "series " + id,
		Value:       core.Money{Cents: 20000},
		StartDate:   start,
		EndDate:     end,
	}
}

func override(id, seriesID string, year, month int) core.Override {
	return core.Override{
		ID:          id,
		ParentID:    seriesID,
		Year:        year,
		Month:       month,
		Description: "override " + id,
		Value:       core.Money{Cents: 500},
		Type:        core.Expense,
		Date:        core.NewDate(year, month, 1),
	}
}
