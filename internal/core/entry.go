package core

// EntryKind discriminates the effective entries of a month.
type EntryKind string

const (
	KindOneTime           EntryKind = "one_time"
	KindRecurringInstance EntryKind = "recurring_instance"
	KindOverride          EntryKind = "override"
	KindAccumulated       EntryKind = "accumulated_balance"
)

// AccumulatedEntryID is the reserved id of the synthetic balance entry.
const AccumulatedEntryID = "accumulated-balance"

// Posting is what every effective entry shows on the month list.
type Posting struct {
	Description string
	Value       Money
	Type        TransactionType
	Date        Date
}

func (p Posting) posting() Posting { return p }

// Entry is one line of a reconciled month. The set of implementations is
// closed: OneTimeEntry, InstanceEntry, OverrideEntry and AccumulatedEntry.
type Entry interface {
	Kind() EntryKind
	EntryID() string
	posting() Posting
}

// OneTimeEntry is a stored Transaction.
type OneTimeEntry struct {
	ID string
	Posting
}

// InstanceEntry is a series materialized for one month. PredecessorID is the
// series' ParentID and is only used to hide a closed predecessor.
type InstanceEntry struct {
	SeriesID      string
	PredecessorID string
	Posting
}

// OverrideEntry replaces the instance of SeriesID for its month.
type OverrideEntry struct {
	OverrideID string
	SeriesID   string
	Posting
}

// AccumulatedEntry carries the balance entering the month.
type AccumulatedEntry struct {
	Posting
}

func (OneTimeEntry) Kind() EntryKind     { return KindOneTime }
func (InstanceEntry) Kind() EntryKind    { return KindRecurringInstance }
func (OverrideEntry) Kind() EntryKind    { return KindOverride }
func (AccumulatedEntry) Kind() EntryKind { return KindAccumulated }

func (e OneTimeEntry) EntryID() string   { return e.ID }
func (e InstanceEntry) EntryID() string  { return e.SeriesID }
func (e OverrideEntry) EntryID() string  { return e.OverrideID }
func (AccumulatedEntry) EntryID() string { return AccumulatedEntryID }

// PostingOf returns the shared fields of any entry.
func PostingOf(e Entry) Posting {
	return e.posting()
}

// NewOneTimeEntry converts a stored transaction.
func NewOneTimeEntry(tx Transaction) OneTimeEntry {
	return OneTimeEntry{
		ID: tx.ID,
		Posting: Posting{
			Description: tx.Description,
			Value:       tx.Value,
			Type:        tx.Type,
			Date:        tx.Date,
		},
	}
}

// NewOverrideEntry converts a stored override.
func NewOverrideEntry(o Override) OverrideEntry {
	return OverrideEntry{
		OverrideID: o.ID,
		SeriesID:   o.ParentID,
		Posting: Posting{
			Description: o.Description,
			Value:       o.Value,
			Type:        o.Type,
			Date:        o.Date,
		},
	}
}

// NewAccumulatedEntry builds the synthetic first line of a month. A negative
// balance keeps its sign; the type is always income.
func NewAccumulatedEntry(year, month int, balance Money) AccumulatedEntry {
	return AccumulatedEntry{Posting: Posting{
		Description: "Accumulated balance",
		Value:       balance,
		Type:        Income,
		Date:        MonthStart(year, month),
	}}
}

// MonthSummary totals a reconciled month.
type MonthSummary struct {
	Year        int
	Month       int // 1-12
	Accumulated Money
	Income      Money
	Expense     Money
	Credit      Money
	Net         Money
	Closing     Money
}

// Summarize totals entries. The accumulated entry feeds Accumulated and is
// excluded from the per-type totals.
func Summarize(year, month int, entries []Entry) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	for _, e := range entries {
		p := PostingOf(e)
		if e.Kind() == KindAccumulated {
			s.Accumulated = s.Accumulated.Add(p.Value)
			continue
		}
		switch p.Type {
		case Income:
			s.Income = s.Income.Add(p.Value)
		case Expense:
			s.Expense = s.Expense.Add(p.Value)
		case Credit:
			s.Credit = s.Credit.Add(p.Value)
		}
	}
	s.Net = s.Income.Sub(s.Expense).Sub(s.Credit)
	s.Closing = s.Accumulated.Add(s.Net)
	return s
}
