package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guilhermegsn/finance-control/internal/cache"
	"github.com/guilhermegsn/finance-control/internal/config"
	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/services"
)

// Engine bundles the read and write services over one backend.
type Engine struct {
	Backend    *BackendResult
	Balances   *services.CachedBalance
	Reconciler *services.Reconciler
	Ledger     *services.LedgerService

	caches *cache.Manager
}

// NewEngine opens the backend described by cfg and wires the services.
func NewEngine(ctx context.Context, cfg *config.Config, mode PublisherMode, logger *slog.Logger) (*Engine, error) {
	bcfg, err := FromAppConfig(cfg, mode)
	if err != nil {
		return nil, err
	}
	res, err := NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return Assemble(res, cfg), nil
}

// Assemble wires the services over an already open backend.
func Assemble(res *BackendResult, cfg *config.Config) *Engine {
	calc := services.NewBalanceCalculator(res.Store)
	balances := services.NewCachedBalance(res.Store, calc, cfg.BalanceCacheSize, cfg.BalanceCacheTTL)

	opts := []services.Option{
		services.WithInvalidator(balances),
		services.WithSnapshotCorrection(services.SnapshotCorrection(cfg.SnapshotCorrection)),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}

	e := &Engine{
		Backend:    res,
		Balances:   balances,
		Reconciler: services.NewReconciler(res.Store, balances, cfg.ExportConcurrency),
		Ledger:     services.NewLedgerService(res.Store, core.NewUUIDGenerator(), opts...),
		caches:     cache.NewManager(),
	}
	if cfg.BalanceCacheTTL > 0 {
		e.caches.Register(balances.Cleaner())
		e.caches.StartCleanup(cfg.BalanceCacheTTL)
	}
	return e
}

// Close stops cache cleanup and releases the backend.
func (e *Engine) Close() error {
	e.caches.Stop()
	if e.Backend.Cleanup == nil {
		return nil
	}
	return e.Backend.Cleanup()
}

// CleanupTimeout bounds how long Close may take during shutdown.
const CleanupTimeout = 10 * time.Second
