package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guilhermegsn/finance-control/internal/amqp"
	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
	"github.com/guilhermegsn/finance-control/internal/ledger/memory"
)

func sequentialIDs(prefix string) core.IDGenerator {
	var mu sync.Mutex
	n := 0
	return core.IDFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	})
}

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 15, 4, 5, 0, time.UTC) }
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

type fixture struct {
	store      *memory.Store
	calc       *BalanceCalculator
	reconciler *Reconciler
	svc        *LedgerService
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.New()
	calc := NewBalanceCalculator(store)
	pub := &recordingPublisher{}
	opts = append([]Option{WithPublisher(pub), WithClock(fixedClock(2024, 6, 15))}, opts...)
	return &fixture{
		store:      store,
		calc:       calc,
		reconciler: NewReconciler(store, calc, 4),
		svc:        NewLedgerService(store, sequentialIDs("id"), opts...),
		publisher:  pub,
	}
}

func (f *fixture) seed(t *testing.T, fn func(ctx context.Context, rw ledger.ReadWriter) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Update(ctx, func(rw ledger.ReadWriter) error { return fn(ctx, rw) }))
}

func (f *fixture) balance(t *testing.T, year, month int) core.Balance {
	t.Helper()
	var b core.Balance
	err := f.store.View(context.Background(), func(r ledger.Reader) error {
		var err error
		b, err = r.GetBalance(context.Background(), core.BalanceID(year, month))
		return err
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) series(t *testing.T, id string) core.RecurringTransaction {
	t.Helper()
	var s core.RecurringTransaction
	err := f.store.View(context.Background(), func(r ledger.Reader) error {
		var err error
		s, err = r.GetSeries(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return s
}

func expenseSeries(id string, cents int64, start, end core.Date) core.RecurringTransaction {
	return core.RecurringTransaction{
		ID:          id,
		Type:        core.Expense,
		Description: "rent",
		Value:       core.Money{Cents: cents},
		StartDate:   start,
		EndDate:     end,
	}
}

func kinds(entries []core.Entry) []core.EntryKind {
	out := make([]core.EntryKind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind()
	}
	return out
}

func instancesOf(entries []core.Entry) []core.InstanceEntry {
	var out []core.InstanceEntry
	for _, e := range entries {
		if in, ok := e.(core.InstanceEntry); ok {
			out = append(out, in)
		}
	}
	return out
}

// failingReader fails the override query of a month.
type failingReader struct {
	ledger.Reader
	err error
}

func (r failingReader) ListOverridesForMonth(context.Context, int, int) ([]core.Override, error) {
	return nil, r.err
}

type failingStore struct {
	ledger.Store
	err error
}

func (s failingStore) View(ctx context.Context, fn func(ledger.Reader) error) error {
	return s.Store.View(ctx, func(r ledger.Reader) error {
		return fn(failingReader{Reader: r, err: s.err})
	})
}

func (s failingStore) Update(context.Context, func(ledger.ReadWriter) error) error {
	return s.err
}
