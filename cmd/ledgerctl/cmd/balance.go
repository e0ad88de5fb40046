package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance YEAR MONTH",
		Short: "Print the balance accumulated before a month",
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

			bal, err := engine.Balances.AccumulatedBalance(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%04d-%02d %s\n", year, month, bal)
			return nil
		},
	}
}
