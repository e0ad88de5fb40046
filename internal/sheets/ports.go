// Package sheets defines the spreadsheet export of reconciled months.
package sheets

import (
	"context"
	"fmt"

	"github.com/guilhermegsn/finance-control/internal/core"
)

// MonthExporter writes one reconciled month to an external sheet, replacing
// whatever the month's tab held before. It returns a reference to the
// written range.
type MonthExporter interface {
	ExportMonth(ctx context.Context, year, month int, entries []core.Entry, summary core.MonthSummary) (ref string, err error)
}

// TabName is the per-month tab title, e.g. "Ledger 2024-03".
func TabName(base string, year, month int) string {
	return fmt.Sprintf("%s %s", base, core.BalanceID(year, month))
}

// Header is the first row of every month tab.
var Header = []any{"Date", "Kind", "Description", "Type", "Value", "ID", "Series"}

// BuildRows lays out a month as sheet rows: the header, one row per entry
// in reconcile order, a blank row and the summary totals. Values are in
// currency units so the sheet can sum them.
func BuildRows(entries []core.Entry, summary core.MonthSummary) [][]any {
	rows := make([][]any, 0, len(entries)+8)
	rows = append(rows, Header)

	for _, e := range entries {
		p := core.PostingOf(e)
		series := ""
		switch v := e.(type) {
		case core.InstanceEntry:
			series = v.SeriesID
		case core.OverrideEntry:
			series = v.SeriesID
		}
		rows = append(rows, []any{
			p.Date.String(),
			string(e.Kind()),
			p.Description,
			string(p.Type),
			p.Value.Units(),
			e.EntryID(),
			series,
		})
	}

	rows = append(rows, []any{})
	for _, t := range []struct {
		label string
		value core.Money
	}{
		{"Accumulated", summary.Accumulated},
		{"Income", summary.Income},
		{"Expense", summary.Expense},
		{"Credit", summary.Credit},
		{"Net", summary.Net},
		{"Closing", summary.Closing},
	} {
		rows = append(rows, []any{"", "total", t.label, "", t.value.Units()})
	}
	return rows
}
