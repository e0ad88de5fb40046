package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guilhermegsn/finance-control/internal/amqp"
	"github.com/guilhermegsn/finance-control/internal/ledger"
	"github.com/guilhermegsn/finance-control/internal/ledger/memory"
	"github.com/guilhermegsn/finance-control/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and the publisher its
// PublisherMode asks for.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(config)
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	publisher, err := f.createPublisher(config)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			f.logger.Error("Failed to close store", "error", cerr)
		}
		return nil, err
	}

	return &BackendResult{
		Store:     store,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				if err := publisher.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close amqp client: %w", err))
				}
			}
			if err := store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (ledger.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	version, dirty, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		_ = repo.Close()
		return nil, fmt.Errorf("schema version %d is dirty, fix the failed migration first", version)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "schema_version", version)
	return repo, nil
}

func (f *DefaultFactory) createPublisher(config Config) (*amqp.Client, error) {
	if config.PublisherMode == PublisherDisabled || config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		if config.PublisherMode == PublisherRequired {
			return nil, fmt.Errorf("connect to AMQP broker: %w", err)
		}
		f.logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
		return nil, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue,
		"mode", config.PublisherMode.String())
	return client, nil
}
