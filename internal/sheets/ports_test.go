package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermegsn/finance-control/internal/core"
)

func TestTabName(t *testing.T) {
	assert.Equal(t, "Ledger 2024-03", TabName("Ledger", 2024, 3))
	assert.Equal(t, "Budget 2023-12", TabName("Budget", 2023, 12))
}

func TestBuildRows(t *testing.T) {
	entries := []core.Entry{
		core.NewAccumulatedEntry(2024, 3, core.Money{Cents: -40000}),
		core.NewOneTimeEntry(core.Transaction{
			ID: "tx-1", Description: "Salary", Value: core.Money{Cents: 150000},
			Type: core.Income, Date: core.NewDate(2024, 3, 5),
		}),
		core.InstanceEntry{SeriesID: "s-1", Posting: core.Posting{
			Description: "Rent", Value: core.Money{Cents: 20000},
			Type: core.Expense, Date: core.NewDate(2024, 3, 10),
		}},
	}
	summary := core.Summarize(2024, 3, entries)

	rows := BuildRows(entries, summary)
	require.Len(t, rows, 1+3+1+6)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []any{"2024-03-01", "accumulated_balance", "Accumulated balance", "income", -400.0, core.AccumulatedEntryID, ""}, rows[1])
	assert.Equal(t, []any{"2024-03-10", "recurring_instance", "Rent", "expense", 200.0, "s-1", "s-1"}, rows[3])
	assert.Empty(t, rows[4])
	assert.Equal(t, []any{"", "total", "Closing", "", 900.0}, rows[len(rows)-1])
}
