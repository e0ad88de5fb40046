package services

import (
	"context"
	"fmt"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// BalanceFunc computes the balance entering (year, month) from r.
type BalanceFunc func(ctx context.Context, r ledger.Reader, year, month int) (core.Money, error)

// BalanceSource hands out a BalanceFunc. Begin must be called before the
// read transaction the returned func will use is opened.
type BalanceSource interface {
	Begin() BalanceFunc
}

// BalanceCalculator computes the accumulated balance from scratch on every
// call: stored snapshots plus every series expanded month by month.
type BalanceCalculator struct {
	store ledger.Store
}

func NewBalanceCalculator(store ledger.Store) *BalanceCalculator {
	return &BalanceCalculator{store: store}
}

func (c *BalanceCalculator) Begin() BalanceFunc {
	return c.Accumulate
}

// AccumulatedBalance returns the running balance carried into (year, month).
func (c *BalanceCalculator) AccumulatedBalance(ctx context.Context, year, month int) (core.Money, error) {
	return accumulatedBalance(ctx, c.store, c, year, month)
}

func accumulatedBalance(ctx context.Context, store ledger.Store, src BalanceSource, year, month int) (core.Money, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return core.Money{}, err
	}
	fn := src.Begin()
	var total core.Money
	err := store.View(ctx, func(r ledger.Reader) error {
		var err error
		total, err = fn(ctx, r, year, month)
		return err
	})
	if err != nil {
		return core.Money{}, wrapStore("accumulated balance", err)
	}
	return total, nil
}

type overrideKey struct {
	seriesID string
	ym       int
}

// Accumulate sums every snapshot strictly before the target month and the
// contribution of every series for each month from its start up to the
// month before the target. In each month an override replaces the series'
// default value.
//
// The scan also applies the month view's chain dedup: a series continued by
// an active successor contributes nothing in that month. A plain per-series
// scan would count the split month twice, once for the closed series and
// once for its successor, so the carried balance would disagree with the
// sum of the month views before it.
func (c *BalanceCalculator) Accumulate(ctx context.Context, r ledger.Reader, year, month int) (core.Money, error) {
	balances, err := r.ListBalancesBefore(ctx, year, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("list balances: %w", err)
	}
	series, err := r.ListSeries(ctx)
	if err != nil {
		return core.Money{}, fmt.Errorf("list series: %w", err)
	}
	overrides, err := r.ListOverridesBefore(ctx, year, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("list overrides: %w", err)
	}

	var total core.Money
	for _, b := range balances {
		total = total.Add(b.PartialBalance)
	}

	byKey := make(map[overrideKey]core.Override, len(overrides))
	for _, o := range overrides {
		k := overrideKey{o.ParentID, core.MonthIndex(o.Year, o.Month)}
		if _, dup := byKey[k]; !dup {
			byKey[k] = o
		}
	}

	successors := make(map[string][]core.RecurringTransaction)
	for _, s := range series {
		if s.ParentID != "" {
			successors[s.ParentID] = append(successors[s.ParentID], s)
		}
	}

	limit := core.MonthIndex(year, month) - 1
	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return core.Money{}, err
		}
		startYM := core.MonthIndex(s.StartDate.Year(), s.StartDate.Month())
		if startYM > limit {
			continue
		}
		endYM := limit
		if !s.EndDate.IsEmpty() {
			endYM = min(endYM, core.MonthIndex(s.EndDate.Year(), s.EndDate.Month()))
		}
		for ym := startYM; ym <= endYM; ym++ {
			y, m := core.FromMonthIndex(ym)
			if o, ok := byKey[overrideKey{s.ID, ym}]; ok {
				total = total.Add(o.Value.Signed(o.Type))
				continue
			}
			if !core.IsActive(s, y, m) || continuedIn(successors[s.ID], y, m) {
				continue
			}
			total = total.Add(s.Value.Signed(s.Type))
		}
	}
	return total, nil
}

// continuedIn reports whether any successor is active in the month. Such a
// month is skipped for the predecessor, which departs from a literal
// per-series scan: the split month is counted once, through the successor.
func continuedIn(successors []core.RecurringTransaction, year, month int) bool {
	for _, succ := range successors {
		if core.IsActive(succ, year, month) {
			return true
		}
	}
	return false
}
