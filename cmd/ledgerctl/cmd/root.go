// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/guilhermegsn/finance-control/internal/backend"
	"github.com/guilhermegsn/finance-control/internal/cli"
	"github.com/guilhermegsn/finance-control/internal/core"
	applog "github.com/guilhermegsn/finance-control/internal/log"
)

type rootOptions struct {
	envFile string
	debug   bool
	logger  *applog.Logger
}

// NewRootCmd builds the command tree. Each invocation gets fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and load the finance-control ledger",
		Long: `ledgerctl works directly on the ledger store configured by the
environment (LEDGER_BACKEND, SQLITE_DB_PATH).

Example:
  ledgerctl month 2024 3
  ledgerctl balance 2024 3
  ledgerctl import ledger.yaml
  ledgerctl add --description Rent --value 400 --type expense --date 2024-01-10 --recurring
  ledgerctl edit series SERIES_ID 2024 3 --only-month --description Rent --value 420`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile != "" {
				if err := cli.LoadEnvFile(opts.envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			} else if err := cli.LoadEnvFile(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
			opts.logger = cli.SetupLogger(applog.ComponentCLI, opts.debug)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "env file to load (default is .env)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newMonthCmd(opts))
	root.AddCommand(newBalanceCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newEditCmd(opts))
	return root
}

// Execute runs ledgerctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// openEngine loads the configuration and opens the ledger it points at.
func (o *rootOptions) openEngine(ctx context.Context) (*backend.Engine, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	return backend.NewEngine(ctx, cfg, backend.PublisherOptional, o.logger.Logger)
}

func (o *rootOptions) closeEngine(e *backend.Engine) {
	if err := e.Close(); err != nil {
		o.logger.Error("Backend cleanup error", applog.FieldError, err)
	}
}

// parseMonthArgs reads YEAR MONTH positional arguments.
func parseMonthArgs(args []string) (int, int, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, &core.ValidationError{Field: "year", Err: err}
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	if err := core.ValidateMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
