// Package backend opens the ledger store and change publisher described by
// the configuration and wires the ledger services over them.
package backend

import (
	"context"
	"fmt"

	"github.com/guilhermegsn/finance-control/internal/amqp"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

// BackendType selects the ledger.Store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

var backendTypes = []BackendType{SQLiteBackend, MemoryBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	for _, t := range backendTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// PublisherMode decides how the AMQP change publisher is opened.
type PublisherMode int

const (
	// PublisherOptional connects when AMQP_URL is set and carries on
	// without notifications if the broker is unreachable.
	PublisherOptional PublisherMode = iota
	// PublisherRequired fails backend creation without a broker.
	PublisherRequired
	// PublisherDisabled never connects.
	PublisherDisabled
)

func (m PublisherMode) String() string {
	switch m {
	case PublisherOptional:
		return "optional"
	case PublisherRequired:
		return "required"
	case PublisherDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("PublisherMode(%d)", int(m))
	}
}

// Config is the part of the application config a backend needs.
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	PublisherMode PublisherMode
}

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult is an open store plus the change publisher, which is nil
// unless a broker was reached.
type BackendResult struct {
	Store     ledger.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
