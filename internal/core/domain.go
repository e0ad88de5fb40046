package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
	Credit  TransactionType = "credit"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a one-time ledger entry.
	Transaction struct {
		ID          string
		Description string
		Value       Money
		Type        TransactionType
		Date        Date
	}

	// RecurringTransaction is a monthly series. A zero EndDate means the
	// series never ends. ParentID points at the series this one continues.
	RecurringTransaction struct {
		ID          string
		Type        TransactionType
		Description string
		Value       Money
		StartDate   Date
		EndDate     Date
		ParentID    string
	}

	// Override replaces the virtual instance of series ParentID for exactly
	// one (Year, Month).
	Override struct {
		ID          string
		ParentID    string
		Year        int
		Month       int // 1-12
		Description string
		Value       Money
		Type        TransactionType
		Date        Date
	}

	// Balance is the monthly snapshot of one-time transactions.
	Balance struct {
		ID             string
		Year           int
		Month          int // 1-12
		Income         Money
		Expense        Money
		Credit         Money
		PartialBalance Money
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingType      = errors.New("transaction type not selected")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrSeriesInactive   = errors.New("series not active in month")
)

// ValidationError reports input rejected before any write.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ParseTransactionType accepts the three known types, case-insensitive.
// An empty string yields ErrMissingType.
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrMissingType
	}
	t := TransactionType(s)
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Credit:
		return true
	default:
		return false
	}
}

// Sign is +1 for income and -1 for expense and credit.
func (t TransactionType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

// Signed returns m with the sign its type contributes to a balance.
func (m Money) Signed(t TransactionType) Money {
	return Money{Cents: m.Cents * t.Sign()}
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// IsEmpty returns true if the date is zero (used for open-ended series)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.Description) == "" {
		return invalid("description", ErrEmptyDescription)
	}
	if err := tx.Value.Validate(); err != nil {
		return invalid("value", err)
	}
	if !tx.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if err := tx.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if strings.TrimSpace(rt.Description) == "" {
		return invalid("description", ErrEmptyDescription)
	}
	if err := rt.Value.Validate(); err != nil {
		return invalid("value", err)
	}
	if !rt.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if err := rt.StartDate.Validate(); err != nil {
		return invalid("start_date", err)
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
		return invalid("end_date", errors.New("end date must not be before start date"))
	}
	return nil
}

// BalanceID is the snapshot key for a month, e.g. "2024-03".
func BalanceID(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// NewBalance returns an empty snapshot for the month.
func NewBalance(year, month int) Balance {
	return Balance{ID: BalanceID(year, month), Year: year, Month: month}
}

// Recompute refreshes PartialBalance from the three totals.
func (b *Balance) Recompute() {
	b.PartialBalance = b.Income.Sub(b.Expense).Sub(b.Credit)
}

// Apply adds value to the total for t and recomputes the partial balance.
func (b *Balance) Apply(t TransactionType, value Money) {
	switch t {
	case Income:
		b.Income = b.Income.Add(value)
	case Expense:
		b.Expense = b.Expense.Add(value)
	case Credit:
		b.Credit = b.Credit.Add(value)
	}
	b.Recompute()
}
