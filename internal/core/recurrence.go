package core

import "time"

// ValidateMonth rejects months outside 1-12 and non-positive years.
func ValidateMonth(year, month int) error {
	if month < 1 || month > 12 || year < 1 {
		return invalid("month", ErrInvalidMonth)
	}
	return nil
}

// DaysIn returns the number of days of the month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart is the first day of the month.
func MonthStart(year, month int) Date {
	return NewDate(year, month, 1)
}

// MonthEnd is the last day of the month. Dates carry no time of day, so this
// is the last instant a stored date can take within the month.
func MonthEnd(year, month int) Date {
	return NewDate(year, month, DaysIn(year, month))
}

// ClampDay returns day in the month, moved down to the last day when the
// month is shorter. It never rolls into the next month.
func ClampDay(year, month, day int) Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}

// MonthIndex linearizes (year, month) so consecutive months differ by one.
func MonthIndex(year, month int) int {
	return year*12 + (month - 1)
}

// FromMonthIndex reverses MonthIndex.
func FromMonthIndex(ym int) (year, month int) {
	return ym / 12, ym%12 + 1
}

// AddMonths shifts (year, month) by n months, n may be negative.
func AddMonths(year, month, n int) (int, int) {
	return FromMonthIndex(MonthIndex(year, month) + n)
}

// IsActive reports whether the series produces an instance in the month.
// Both boundaries are inclusive.
func IsActive(s RecurringTransaction, year, month int) bool {
	if s.StartDate.After(MonthEnd(year, month).Time) {
		return false
	}
	if !s.EndDate.IsZero() && s.EndDate.Before(MonthStart(year, month).Time) {
		return false
	}
	return true
}

// Materialize produces the virtual instance of the series for the month,
// dated on the series' anchor day clamped into the month.
func Materialize(s RecurringTransaction, year, month int) InstanceEntry {
	return InstanceEntry{
		SeriesID:      s.ID,
		PredecessorID: s.ParentID,
		Posting: Posting{
			Description: s.Description,
			Value:       s.Value,
			Type:        s.Type,
			Date:        ClampDay(year, month, s.StartDate.Day()),
		},
	}
}

// DedupChain drops instances whose series was continued by another instance
// of the same month. Only one hop is inspected.
func DedupChain(instances []InstanceEntry) []InstanceEntry {
	continued := make(map[string]struct{})
	for _, in := range instances {
		if in.PredecessorID != "" {
			continued[in.PredecessorID] = struct{}{}
		}
	}
	if len(continued) == 0 {
		return instances
	}
	out := instances[:0:0]
	for _, in := range instances {
		if _, ok := continued[in.SeriesID]; ok {
			continue
		}
		out = append(out, in)
	}
	return out
}
