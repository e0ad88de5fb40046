package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// MonthView is a reconciled month with its totals.
type MonthView struct {
	Year    int
	Month   int
	Entries []core.Entry
	Summary core.MonthSummary
}

// Reconciler builds the effective entries of a month.
type Reconciler struct {
	store       ledger.Store
	balances    BalanceSource
	concurrency int
}

func NewReconciler(store ledger.Store, balances BalanceSource, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{store: store, balances: balances, concurrency: concurrency}
}

// Reconcile returns the month as
// [accumulated, one-time..., overrides..., instances...], each group in store
// order. All reads share one read transaction; on error no list is returned.
func (rc *Reconciler) Reconcile(ctx context.Context, year, month int) ([]core.Entry, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, err
	}

	balanceOf := rc.balances.Begin()
	var entries []core.Entry
	err := rc.store.View(ctx, func(r ledger.Reader) error {
		var err error
		entries, err = reconcileIn(ctx, r, balanceOf, year, month)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "Month reconciliation failed", "year", year, "month", month, "error", err)
		return nil, wrapStore(fmt.Sprintf("reconcile %s", core.BalanceID(year, month)), err)
	}
	return entries, nil
}

func reconcileIn(ctx context.Context, r ledger.Reader, balanceOf BalanceFunc, year, month int) ([]core.Entry, error) {
	start, end := core.MonthStart(year, month), core.MonthEnd(year, month)

	txs, err := r.ListTransactionsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	candidates, err := r.ListActiveSeries(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	overrides, err := r.ListOverridesForMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}

	overridden := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		overridden[o.ParentID] = struct{}{}
	}

	instances := make([]core.InstanceEntry, 0, len(candidates))
	for _, s := range candidates {
		if core.IsActive(s, year, month) {
			instances = append(instances, core.Materialize(s, year, month))
		}
	}
	instances = core.DedupChain(instances)

	accumulated, err := balanceOf(ctx, r, year, month)
	if err != nil {
		return nil, fmt.Errorf("accumulated balance: %w", err)
	}

	entries := make([]core.Entry, 0, 1+len(txs)+len(overrides)+len(instances))
	entries = append(entries, core.NewAccumulatedEntry(year, month, accumulated))
	for _, tx := range txs {
		entries = append(entries, core.NewOneTimeEntry(tx))
	}
	for _, o := range overrides {
		entries = append(entries, core.NewOverrideEntry(o))
	}
	for _, in := range instances {
		if _, ok := overridden[in.SeriesID]; ok {
			continue
		}
		entries = append(entries, in)
	}
	return entries, nil
}

// MonthView reconciles the month and totals it.
func (rc *Reconciler) MonthView(ctx context.Context, year, month int) (MonthView, error) {
	entries, err := rc.Reconcile(ctx, year, month)
	if err != nil {
		return MonthView{}, err
	}
	return MonthView{
		Year:    year,
		Month:   month,
		Entries: entries,
		Summary: core.Summarize(year, month, entries),
	}, nil
}

// ReconcileRange returns views for count consecutive months starting at
// (year, month), in calendar order. Months are reconciled concurrently, each
// in its own read transaction; the first failure cancels the rest.
func (rc *Reconciler) ReconcileRange(ctx context.Context, year, month, count int) ([]MonthView, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, nil
	}

	views := make([]MonthView, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.concurrency)
	for i := 0; i < count; i++ {
		i := i
		y, m := core.AddMonths(year, month, i)
		g.Go(func() error {
			v, err := rc.MonthView(gctx, y, m)
			if err != nil {
				return err
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
