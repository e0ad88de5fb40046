// Package memory is an in-process MonthExporter for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/sheets"
)

var _ sheets.MonthExporter = (*Exporter)(nil)

type Exporter struct {
	mu      sync.Mutex
	base    string
	tabs    map[string][][]any
	exports int
}

func New(base string) *Exporter {
	if base == "" {
		base = "Ledger"
	}
	return &Exporter{base: base, tabs: make(map[string][][]any)}
}

// ExportMonth replaces the rows of the month's tab.
func (e *Exporter) ExportMonth(_ context.Context, year, month int, entries []core.Entry, summary core.MonthSummary) (string, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return "", err
	}
	rows := sheets.BuildRows(entries, summary)
	tab := sheets.TabName(e.base, year, month)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[tab] = rows
	e.exports++
	return fmt.Sprintf("mem:%s!A1:G%d", tab, len(rows)), nil
}

// Rows returns a copy of the rows last written to tab.
func (e *Exporter) Rows(tab string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.tabs[tab]
	if !ok {
		return nil, false
	}
	out := make([][]any, len(rows))
	copy(out, rows)
	return out, true
}

// Tabs lists written tabs in name order.
func (e *Exporter) Tabs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.tabs))
	for t := range e.tabs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Exports counts successful ExportMonth calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
