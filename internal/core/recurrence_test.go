package core

import "testing"

func series(id string, start, end Date) RecurringTransaction {
	return RecurringTransaction{
		ID:          id,
		Type:        Expense,
		Description: "rent",
		Value:       Money{Cents: 20000},
		StartDate:   start,
		EndDate:     end,
	}
}

func TestIsActive(t *testing.T) {
	open := series("s1", NewDate(2024, 3, 15), Date{})
	closed := series("s2", NewDate(2024, 1, 31), NewDate(2024, 6, 1))

	cases := []struct {
		name   string
		s      RecurringTransaction
		year   int
		month  int
		active bool
	}{
		{"before start", open, 2024, 2, false},
		{"start month", open, 2024, 3, true},
		{"next month", open, 2024, 4, true},
		{"years later", open, 2031, 11, true},
		{"end on month start is inclusive", closed, 2024, 6, true},
		{"after end", closed, 2024, 7, false},
		{"inside window", closed, 2024, 2, true},
		{"year before", closed, 2023, 12, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsActive(tc.s, tc.year, tc.month); got != tc.active {
				t.Fatalf("IsActive(%d-%02d) = %v, want %v", tc.year, tc.month, got, tc.active)
			}
		})
	}
}

func TestMaterializeClampsDay(t *testing.T) {
	s := series("s1", NewDate(2023, 1, 31), Date{})

	cases := []struct {
		year, month int
		want        Date
	}{
		{2023, 2, NewDate(2023, 2, 28)},
		{2024, 2, NewDate(2024, 2, 29)},
		{2024, 4, NewDate(2024, 4, 30)},
		{2024, 5, NewDate(2024, 5, 31)},
	}
	for _, tc := range cases {
		in := Materialize(s, tc.year, tc.month)
		if !in.Date.Equal(tc.want.Time) {
			t.Errorf("Materialize(%d-%02d) date = %s, want %s", tc.year, tc.month, in.Date, tc.want)
		}
		if in.Date.Month() != tc.month {
			t.Errorf("Materialize(%d-%02d) rolled over into month %d", tc.year, tc.month, in.Date.Month())
		}
	}
}

func TestMaterializeCarriesLineage(t *testing.T) {
	s := series("succ", NewDate(2024, 6, 1), Date{})
	s.ParentID = "pred"
	in := Materialize(s, 2024, 6)
	if in.SeriesID != "succ" || in.EntryID() != "succ" {
		t.Fatalf("expected series id as instance id, got %q", in.EntryID())
	}
	if in.PredecessorID != "pred" {
		t.Fatalf("expected predecessor pred, got %q", in.PredecessorID)
	}
	if in.Kind() != KindRecurringInstance {
		t.Fatalf("unexpected kind %s", in.Kind())
	}
}

func TestDedupChain(t *testing.T) {
	pred := Materialize(series("pred", NewDate(2024, 1, 10), NewDate(2024, 6, 10)), 2024, 6)
	succSeries := series("succ", NewDate(2024, 6, 1), Date{})
	succSeries.ParentID = "pred"
	succ := Materialize(succSeries, 2024, 6)
	other := Materialize(series("other", NewDate(2024, 1, 5), Date{}), 2024, 6)

	got := DedupChain([]InstanceEntry{pred, other, succ})
	if len(got) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(got))
	}
	if got[0].SeriesID != "other" || got[1].SeriesID != "succ" {
		t.Fatalf("unexpected survivors %q, %q", got[0].SeriesID, got[1].SeriesID)
	}
}

func TestMonthIndexRoundTrip(t *testing.T) {
	for _, ym := range [][2]int{{2024, 1}, {2024, 12}, {1999, 7}} {
		y, m := FromMonthIndex(MonthIndex(ym[0], ym[1]))
		if y != ym[0] || m != ym[1] {
			t.Fatalf("round trip %v gave %d-%d", ym, y, m)
		}
	}
	if y, m := AddMonths(2024, 12, 1); y != 2025 || m != 1 {
		t.Fatalf("AddMonths(2024-12, 1) = %d-%d", y, m)
	}
	if y, m := AddMonths(2024, 1, -1); y != 2023 || m != 12 {
		t.Fatalf("AddMonths(2024-01, -1) = %d-%d", y, m)
	}
}

func TestValidateMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if err := ValidateMonth(2024, m); !IsValidation(err) {
			t.Errorf("month %d: expected validation error, got %v", m, err)
		}
	}
	if err := ValidateMonth(2024, 12); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		NewAccumulatedEntry(2024, 3, Money{Cents: -40000}),
		NewOneTimeEntry(Transaction{ID: "t1", Description: "bonus", Value: Money{Cents: 10000}, Type: Income, Date: NewDate(2024, 3, 2)}),
		Materialize(series("s1", NewDate(2024, 1, 1), Date{}), 2024, 3),
	}
	s := Summarize(2024, 3, entries)
	if s.Accumulated.Cents != -40000 || s.Income.Cents != 10000 || s.Expense.Cents != 20000 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Net.Cents != -10000 || s.Closing.Cents != -50000 {
		t.Fatalf("unexpected net/closing %+v", s)
	}
}
