package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/services"
)

// draftFlags are the form fields shared by add and edit.
type draftFlags struct {
	description string
	value       string
	typ         string
	date        string
	endDate     string
	recurring   bool
}

func (f *draftFlags) bind(c *cobra.Command, withType bool) {
	c.Flags().StringVar(&f.description, "description", "", "entry description")
	c.Flags().StringVar(&f.value, "value", "", "amount, e.g. 12.50")
	c.Flags().StringVar(&f.date, "date", "", "date YYYY-MM-DD (default today)")
	c.Flags().StringVar(&f.endDate, "end-date", "", "last month of a series, YYYY-MM-DD")
	if withType {
		c.Flags().StringVar(&f.typ, "type", "", "income, expense or credit")
	}
}

func (f *draftFlags) draft() (services.Draft, error) {
	d := services.Draft{
		Description:  f.description,
		Value:        f.value,
		Type:         f.typ,
		IsRecurrence: f.recurring,
	}
	var err error
	if f.date != "" {
		if d.Date, err = core.ParseDate(f.date); err != nil {
			return d, &core.ValidationError{Field: "date", Err: err}
		}
	}
	if f.endDate != "" {
		if d.EndDate, err = core.ParseDate(f.endDate); err != nil {
			return d, &core.ValidationError{Field: "end_date", Err: err}
		}
	}
	return d, nil
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var f draftFlags
	c := &cobra.Command{
		Use:   "add",
		Short: "Add a one-time transaction or a monthly series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.draft()
			if err != nil {
				return err
			}
			return opts.saveEdit(cmd, d, func(s *services.EditSession) error {
				return s.BeginAdd()
			})
		},
	}
	f.bind(c, true)
	c.Flags().BoolVar(&f.recurring, "recurring", false, "create a monthly series starting at --date")
	return c
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "edit",
		Short: "Edit a transaction or a series",
	}

	var uf draftFlags
	unique := &cobra.Command{
		Use:   "transaction ID",
		Short: "Change the description and value of a one-time transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := uf.draft()
			if err != nil {
				return err
			}
			return opts.saveEdit(cmd, d, func(s *services.EditSession) error {
				return s.BeginEditUnique(args[0])
			})
		},
	}
	uf.bind(unique, false)

	var sf draftFlags
	var onlyMonth bool
	series := &cobra.Command{
		Use:   "series ID YEAR MONTH",
		Short: "Change a series from a month onwards, or that month only",
		Long: `Without --only-month the series is closed and a successor starts at the
given month. With --only-month an override replaces just that month; --date
and --type then set the override's date and type.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonthArgs(args[1:])
			if err != nil {
				return err
			}
			d, err := sf.draft()
			if err != nil {
				return err
			}
			mode := services.AllFromMonth
			if onlyMonth {
				mode = services.ThisMonthOnly
			}
			return opts.saveEdit(cmd, d, func(s *services.EditSession) error {
				return s.BeginEditSeries(args[0], year, month, mode)
			})
		},
	}
	sf.bind(series, true)
	series.Flags().BoolVar(&onlyMonth, "only-month", false, "override only the given month")

	c.AddCommand(unique, series)
	return c
}

// saveEdit runs one pending edit through an EditSession and prints the
// resulting id.
func (o *rootOptions) saveEdit(cmd *cobra.Command, d services.Draft, begin func(*services.EditSession) error) error {
	engine, err := o.openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer o.closeEngine(engine)

	session := services.NewEditSession(engine.Ledger)
	if err := begin(session); err != nil {
		return err
	}
	id, err := session.Save(cmd.Context(), d)
	if err != nil {
		session.Cancel()
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
