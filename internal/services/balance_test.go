package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

func TestAccumulatedBalance_EmptyStore(t *testing.T) {
	f := newFixture(t)
	for _, ym := range [][2]int{{1970, 1}, {2024, 3}, {2100, 12}} {
		bal, err := f.calc.AccumulatedBalance(context.Background(), ym[0], ym[1])
		require.NoError(t, err)
		assert.Zero(t, bal.Cents)
	}
}

func TestAccumulatedBalance_Additivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// one-time history through snapshots
	for _, in := range []AddInput{
		{Description: "salary", Value: "1000", Type: "income", Date: core.NewDate(2024, 1, 10)},
		{Description: "dinner", Value: "40", Type: "expense", Date: core.NewDate(2024, 2, 14)},
		{Description: "card", Value: "60", Type: "credit", Date: core.NewDate(2024, 3, 3)},
		{Description: "future", Value: "999", Type: "income", Date: core.NewDate(2024, 5, 1)},
	} {
		_, err := f.svc.Add(ctx, in)
		require.NoError(t, err)
	}
	// bounded income series Feb..Mar and an open expense series from Jan
	_, err := f.svc.Add(ctx, AddInput{Description: "freelance", Value: "300", Type: "income",
		Date: core.NewDate(2024, 2, 28), IsRecurrence: true, EndDate: core.NewDate(2024, 3, 31)})
	require.NoError(t, err)
	rentID, err := f.svc.Add(ctx, AddInput{Description: "rent", Value: "200", Type: "expense",
		Date: core.NewDate(2024, 1, 1), IsRecurrence: true})
	require.NoError(t, err)
	// March rent overridden to 250
	_, err = f.svc.EditOnlyMonth(ctx, rentID, 2024, 3, OverrideInput{Description: "rent", Value: "250"})
	require.NoError(t, err)

	cases := []struct {
		month int
		want  int64
	}{
		{1, 0},
		{2, 100000 - 20000},
		{3, 100000 - 20000 - 4000 + 30000 - 20000},
		{4, 100000 - 20000 - 4000 + 30000 - 20000 - 6000 + 30000 - 25000},
		{5, 100000 - 20000 - 4000 + 30000 - 20000 - 6000 + 30000 - 25000 - 20000},
	}
	for _, tc := range cases {
		bal, err := f.calc.AccumulatedBalance(ctx, 2024, tc.month)
		require.NoError(t, err)
		assert.Equal(t, tc.want, bal.Cents, "accumulated entering 2024-%02d", tc.month)
	}
}

func TestAccumulatedBalance_SplitMonthCountedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, func(ctx context.Context, rw ledger.ReadWriter) error {
		return rw.CreateSeries(ctx, expenseSeries("rent", 20000, core.NewDate(2024, 1, 10), core.Date{}))
	})
	_, err := f.svc.EditAllFromMonth(ctx, "rent", 2024, 6, SplitInput{Description: "rent", Value: "220", AsOf: core.NewDate(2024, 6, 20)})
	require.NoError(t, err)

	bal, err := f.calc.AccumulatedBalance(ctx, 2024, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(-5*20000-22000), bal.Cents)

	// the month view of June agrees with its accumulated contribution
	june, err := f.reconciler.MonthView(ctx, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, bal, june.Summary.Closing)
}

func TestAccumulatedBalance_DuplicateOverridesFirstWins(t *testing.T) {
	f := newFixture(t)
	f.seed(t, func(ctx context.Context, rw ledger.ReadWriter) error {
		if err := rw.CreateSeries(ctx, expenseSeries("rent", 20000, core.NewDate(2024, 1, 1), core.Date{})); err != nil {
			return err
		}
		for i, cents := range []int64{1000, 5000} {
			err := rw.CreateOverride(ctx, core.Override{
				ID: []string{"o1", "o2"}[i], ParentID: "rent", Year: 2024, Month: 1,
				Description: "rent", Value: core.Money{Cents: cents}, Type: core.Expense, Date: core.NewDate(2024, 1, 1),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	bal, err := f.calc.AccumulatedBalance(context.Background(), 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), bal.Cents)
}

func TestCachedBalance_InvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	cached := NewCachedBalance(f.store, f.calc, 16, time.Minute)
	svc := NewLedgerService(f.store, sequentialIDs("c"), WithInvalidator(cached), WithClock(fixedClock(2024, 6, 15)))
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{Description: "salary", Value: "1000", Type: "income", Date: core.NewDate(2024, 1, 10)})
	require.NoError(t, err)

	bal, err := cached.AccumulatedBalance(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), bal.Cents)
	assert.Equal(t, 1, cached.Size())

	_, err = svc.Add(ctx, AddInput{Description: "rent", Value: "200", Type: "expense", Date: core.NewDate(2024, 1, 1), IsRecurrence: true})
	require.NoError(t, err)
	assert.Equal(t, 0, cached.Size())

	bal, err = cached.AccumulatedBalance(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), bal.Cents)

	rc := NewReconciler(f.store, cached, 2)
	entries, err := rc.Reconcile(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), core.PostingOf(entries[0]).Value.Cents)
}

func TestCachedBalance_SeesWritesFromOtherWriters(t *testing.T) {
	f := newFixture(t)
	cached := NewCachedBalance(f.store, f.calc, 16, time.Minute)
	rc := NewReconciler(f.store, cached, 2)
	// other shares the store but never invalidates this cache.
	other := NewLedgerService(f.store, sequentialIDs("o"), WithClock(fixedClock(2024, 6, 15)))
	ctx := context.Background()

	entries, err := rc.Reconcile(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), core.PostingOf(entries[0]).Value.Cents)

	_, err = other.Add(ctx, AddInput{Description: "salary", Value: "1000", Type: "income", Date: core.NewDate(2024, 1, 10)})
	require.NoError(t, err)

	entries, err = rc.Reconcile(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), core.PostingOf(entries[0]).Value.Cents)

	bal, err := cached.AccumulatedBalance(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), bal.Cents)
}

func TestCachedBalance_ConcurrentReaders(t *testing.T) {
	f := newFixture(t)
	cached := NewCachedBalance(f.store, f.calc, 16, time.Minute)
	ctx := context.Background()
	_, err := f.svc.Add(ctx, AddInput{Description: "rent", Value: "200", Type: "expense", Date: core.NewDate(2020, 1, 1), IsRecurrence: true})
	require.NoError(t, err)

	want, err := f.calc.AccumulatedBalance(ctx, 2024, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cached.AccumulatedBalance(ctx, 2024, 1)
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent read: %v", err)
	}
	assert.Equal(t, int64(-48*20000), want.Cents)
}
