package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegsn/finance-control/internal/importer"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	c := &cobra.Command{
		Use:   "import FILE.yaml",
		Short: "Add the transactions and series listed in a YAML file",
		Long: `Reads a YAML document with "transactions" and "series" lists and adds
each row in file order. Rows are checked before anything is written; a
failing row stops the import and leaves earlier rows in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.Load(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				inputs, err := f.Inputs()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows valid (%d transactions, %d series)\n",
					len(inputs), len(f.Transactions), len(f.Series))
				return nil
			}

			engine, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer opts.closeEngine(engine)

			res, err := importer.Apply(cmd.Context(), engine.Ledger, f)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions, %d series\n",
				len(res.TransactionIDs), len(res.SeriesIDs))
			return err
		},
	}
	c.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return c
}
