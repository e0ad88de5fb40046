package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/services"
)

func newMonthCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "month YEAR MONTH",
		Short: "Print the reconciled entries and totals of a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonthArgs(args)
			if err != nil {
				return err
			}
			engine, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer opts.closeEngine(engine)

			view, err := engine.Reconciler.MonthView(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			if asJSON {
				return writeMonthJSON(cmd.OutOrStdout(), view)
			}
			return writeMonthTable(cmd.OutOrStdout(), view)
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return c
}

func writeMonthTable(out io.Writer, v services.MonthView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tKIND\tDESCRIPTION\tTYPE\tVALUE\tID\t\n")
	for _, e := range v.Entries {
		p := core.PostingOf(e)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Date, e.Kind(), p.Description, p.Type, p.Value, e.EntryID())
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\t\n")
	s := v.Summary
	for _, t := range []struct {
		label string
		value core.Money
	}{
		{"accumulated", s.Accumulated},
		{"income", s.Income},
		{"expense", s.Expense},
		{"credit", s.Credit},
		{"net", s.Net},
		{"closing", s.Closing},
	} {
		fmt.Fprintf(tw, "\t\t%s\t\t%s\t\t\n", t.label, t.value)
	}
	return tw.Flush()
}

type jsonEntry struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	ValueCents  int64  `json:"value_cents"`
}

type jsonMonth struct {
	Year    int         `json:"year"`
	Month   int         `json:"month"`
	Entries []jsonEntry `json:"entries"`
	Closing int64       `json:"closing_cents"`
}

func writeMonthJSON(out io.Writer, v services.MonthView) error {
	m := jsonMonth{Year: v.Year, Month: v.Month, Closing: v.Summary.Closing.Cents, Entries: []jsonEntry{}}
	for _, e := range v.Entries {
		p := core.PostingOf(e)
		m.Entries = append(m.Entries, jsonEntry{
			Kind:        string(e.Kind()),
			ID:          e.EntryID(),
			Description: p.Description,
			Type:        string(p.Type),
			Date:        p.Date.String(),
			ValueCents:  p.Value.Cents,
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
