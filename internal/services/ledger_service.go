package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guilhermegsn/finance-control/internal/amqp"
	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// SnapshotCorrection selects how EditUnique fixes the month snapshot.
type SnapshotCorrection string

const (
	// CorrectIncomeOnly moves income by new-old but only adds the new value
	// for expense and credit, so repeated expense edits double count.
	CorrectIncomeOnly SnapshotCorrection = "income-only"
	// CorrectSymmetric moves every type by new-old.
	CorrectSymmetric SnapshotCorrection = "symmetric"
)

func (c SnapshotCorrection) Valid() bool {
	return c == CorrectIncomeOnly || c == CorrectSymmetric
}

// ChangePublisher is notified after every committed write.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Invalidator drops derived state after a write.
type Invalidator interface {
	Invalidate()
}

type (
	AddInput struct {
		Description string
		Value       string
		Type        string
		// Date of a one-time entry or start of a series. Zero means today.
		Date         core.Date
		IsRecurrence bool
		// EndDate bounds a series; zero means open ended.
		EndDate core.Date
	}

	EditInput struct {
		Description string
		Value       string
	}

	// OverrideInput replaces one month of a series. Empty Type and zero Date
	// default to the series type and the instance date.
	OverrideInput struct {
		Description string
		Value       string
		Type        string
		Date        core.Date
	}

	// SplitInput changes a series from a month onwards. AsOf is the date the
	// old series is closed on; zero means today's day clamped into the month.
	SplitInput struct {
		Description string
		Value       string
		EndDate     core.Date
		AsOf        core.Date
	}
)

// LedgerService applies the four ledger mutations. Each one is a single
// store transaction.
type LedgerService struct {
	store      ledger.Store
	ids        core.IDGenerator
	publisher  ChangePublisher
	caches     []Invalidator
	correction SnapshotCorrection
	now        func() time.Time
}

type Option func(*LedgerService)

func WithPublisher(p ChangePublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *LedgerService) { s.caches = append(s.caches, inv) }
}

func WithSnapshotCorrection(c SnapshotCorrection) Option {
	return func(s *LedgerService) {
		if c.Valid() {
			s.correction = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store ledger.Store, ids core.IDGenerator, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		ids:        ids,
		correction: CorrectIncomeOnly,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

func requireDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	return desc, nil
}

func parseType(raw string) (core.TransactionType, error) {
	t, err := core.ParseTransactionType(raw)
	if err != nil {
		return "", &core.ValidationError{Field: "type", Err: err}
	}
	return t, nil
}

// Add records a one-time transaction and folds it into its month snapshot,
// or creates a series when IsRecurrence is set. It returns the new id.
func (s *LedgerService) Add(ctx context.Context, in AddInput) (string, error) {
	desc, err := requireDescription(in.Description)
	if err != nil {
		return "", err
	}
	value, err := core.ParseMoney("value", in.Value)
	if err != nil {
		return "", err
	}
	typ, err := parseType(in.Type)
	if err != nil {
		return "", err
	}
	date := in.Date
	if date.IsEmpty() {
		date = s.today()
	}

	if in.IsRecurrence {
		return s.addSeries(ctx, core.RecurringTransaction{
			ID:          s.ids.NewID(),
			Type:        typ,
			Description: desc,
			Value:       value,
			StartDate:   date,
			EndDate:     in.EndDate,
		})
	}

	tx := core.Transaction{
		ID:          s.ids.NewID(),
		Description: desc,
		Value:       value,
		Type:        typ,
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	err = s.store.Update(ctx, func(rw ledger.ReadWriter) error {
		if err := rw.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		bal, err := loadBalance(ctx, rw, tx.Date.Year(), tx.Date.Month())
		if err != nil {
			return err
		}
		bal.Apply(tx.Type, tx.Value)
		return rw.SaveBalance(ctx, bal)
	})
	if err != nil {
		return "", wrapStore("add transaction", err)
	}

	slog.InfoContext(ctx, "Transaction added",
		"id", tx.ID,
		"type", tx.Type,
		"value_cents", tx.Value.Cents,
		"date", tx.Date.String())
	s.committed(ctx, amqp.OpAddTransaction, tx.ID, tx.Date.Year(), tx.Date.Month())
	return tx.ID, nil
}

func (s *LedgerService) addSeries(ctx context.Context, rt core.RecurringTransaction) (string, error) {
	if err := rt.Validate(); err != nil {
		return "", err
	}
	err := s.store.Update(ctx, func(rw ledger.ReadWriter) error {
		return rw.CreateSeries(ctx, rt)
	})
	if err != nil {
		return "", wrapStore("add series", err)
	}

	slog.InfoContext(ctx, "Series added",
		"id", rt.ID,
		"type", rt.Type,
		"value_cents", rt.Value.Cents,
		"start_date", rt.StartDate.String(),
		"end_date", rt.EndDate.String())
	s.committed(ctx, amqp.OpAddSeries, rt.ID, rt.StartDate.Year(), rt.StartDate.Month())
	return rt.ID, nil
}

// EditUnique replaces description and value of a one-time transaction and
// corrects its month snapshot according to the configured correction.
func (s *LedgerService) EditUnique(ctx context.Context, id string, in EditInput) error {
	desc, err := requireDescription(in.Description)
	if err != nil {
		return err
	}
	value, err := core.ParseMoney("value", in.Value)
	if err != nil {
		return err
	}

	var edited core.Transaction
	err = s.store.Update(ctx, func(rw ledger.ReadWriter) error {
		old, err := rw.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		edited = old
		edited.Description = desc
		edited.Value = value
		if err := rw.UpdateTransaction(ctx, edited); err != nil {
			return err
		}

		bal, err := loadBalance(ctx, rw, old.Date.Year(), old.Date.Month())
		if err != nil {
			return err
		}
		if old.Type == core.Income || s.correction == CorrectSymmetric {
			bal.Apply(old.Type, core.Money{Cents: -old.Value.Cents})
		}
		bal.Apply(old.Type, value)
		return rw.SaveBalance(ctx, bal)
	})
	if err != nil {
		return wrapStore("edit transaction", err)
	}

	slog.InfoContext(ctx, "Transaction edited",
		"id", id,
		"value_cents", value.Cents,
		"correction", string(s.correction))
	s.committed(ctx, amqp.OpEditUnique, id, edited.Date.Year(), edited.Date.Month())
	return nil
}

// EditOnlyMonth stores an override for one month of a series and returns
// its id. A month keeps a single override: editing it again rewrites the
// existing one in place. The series is left untouched.
func (s *LedgerService) EditOnlyMonth(ctx context.Context, seriesID string, year, month int, in OverrideInput) (string, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return "", err
	}
	desc, err := requireDescription(in.Description)
	if err != nil {
		return "", err
	}
	value, err := core.ParseMoney("value", in.Value)
	if err != nil {
		return "", err
	}
	var typ core.TransactionType
	if strings.TrimSpace(in.Type) != "" {
		if typ, err = parseType(in.Type); err != nil {
			return "", err
		}
	}

	o := core.Override{
		ID:          s.ids.NewID(),
		ParentID:    seriesID,
		Year:        year,
		Month:       month,
		Description: desc,
		Value:       value,
		Type:        typ,
		Date:        in.Date,
	}
	err = s.store.Update(ctx, func(rw ledger.ReadWriter) error {
		series, err := rw.GetSeries(ctx, seriesID)
		if err != nil {
			return err
		}
		if !core.IsActive(series, year, month) {
			return &core.ValidationError{Field: "month", Err: core.ErrSeriesInactive}
		}
		if o.Type == "" {
			o.Type = series.Type
		}
		if o.Date.IsEmpty() {
			o.Date = core.Materialize(series, year, month).Date
		}

		existing, err := rw.FindOverride(ctx, seriesID, year, month)
		switch {
		case err == nil:
			o.ID = existing.ID
			return rw.UpdateOverride(ctx, o)
		case isNotFound(err):
			return rw.CreateOverride(ctx, o)
		default:
			return err
		}
	})
	if err != nil {
		return "", wrapStore("edit series month", err)
	}

	slog.InfoContext(ctx, "Series month overridden",
		"id", o.ID,
		"series_id", seriesID,
		"year", year,
		"month", month,
		"value_cents", value.Cents)
	s.committed(ctx, amqp.OpEditOnlyMonth, o.ID, year, month)
	return o.ID, nil
}

// EditAllFromMonth closes the series and starts a successor on the first
// day of (year, month) with the new description and value. It returns the
// successor's id.
func (s *LedgerService) EditAllFromMonth(ctx context.Context, seriesID string, year, month int, in SplitInput) (string, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return "", err
	}
	desc, err := requireDescription(in.Description)
	if err != nil {
		return "", err
	}
	value, err := core.ParseMoney("value", in.Value)
	if err != nil {
		return "", err
	}

	closeOn := in.AsOf
	if closeOn.IsEmpty() {
		closeOn = core.ClampDay(year, month, s.today().Day())
	}

	succ := core.RecurringTransaction{
		ID:          s.ids.NewID(),
		Description: desc,
		Value:       value,
		StartDate:   core.MonthStart(year, month),
		EndDate:     in.EndDate,
		ParentID:    seriesID,
	}
	err = s.store.Update(ctx, func(rw ledger.ReadWriter) error {
		old, err := rw.GetSeries(ctx, seriesID)
		if err != nil {
			return err
		}
		if !core.IsActive(old, year, month) {
			return &core.ValidationError{Field: "month", Err: core.ErrSeriesInactive}
		}
		succ.Type = old.Type
		if err := succ.Validate(); err != nil {
			return err
		}

		old.EndDate = closeOn
		if old.EndDate.Before(old.StartDate.Time) {
			old.EndDate = old.StartDate
		}
		if err := rw.UpdateSeries(ctx, old); err != nil {
			return err
		}
		return rw.CreateSeries(ctx, succ)
	})
	if err != nil {
		return "", wrapStore("split series", err)
	}

	slog.InfoContext(ctx, "Series split",
		"series_id", seriesID,
		"successor_id", succ.ID,
		"year", year,
		"month", month,
		"closed_on", closeOn.String())
	s.committed(ctx, amqp.OpSplitSeries, succ.ID, year, month)
	return succ.ID, nil
}

func loadBalance(ctx context.Context, r ledger.Reader, year, month int) (core.Balance, error) {
	bal, err := r.GetBalance(ctx, core.BalanceID(year, month))
	if err == nil {
		return bal, nil
	}
	if isNotFound(err) {
		return core.NewBalance(year, month), nil
	}
	return core.Balance{}, fmt.Errorf("load balance: %w", err)
}

// committed runs after a successful write. Publishing is best effort.
func (s *LedgerService) committed(ctx context.Context, op, id string, year, month int) {
	for _, c := range s.caches {
		c.Invalidate()
	}
	if s.publisher == nil {
		slog.DebugContext(ctx, "No change publisher configured, skipping event", "operation", op)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(op, id, year, month)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"operation", op,
			"id", id,
			"error", err)
	}
}
