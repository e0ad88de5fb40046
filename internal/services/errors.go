package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// ErrStoreFailure marks errors raised by the ledger store itself.
var ErrStoreFailure = errors.New("store failure")

// wrapStore tags err as a store failure unless it is already a domain error
// or a cancellation.
func wrapStore(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ErrStoreFailure),
		errors.Is(err, ErrInvalidTransition),
		core.IsValidation(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNotFound)
}
