package backend

import (
	"errors"
	"fmt"

	"github.com/guilhermegsn/finance-control/internal/config"
)

// FromAppConfig selects the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config, mode PublisherMode) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:          BackendType(appConfig.LedgerBackend),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		PublisherMode: mode,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypeStrings())
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	switch c.PublisherMode {
	case PublisherDisabled:
		return nil
	case PublisherRequired:
		if c.AMQPURL == "" {
			return errors.New("AMQP URL is required")
		}
	case PublisherOptional:
	default:
		return fmt.Errorf("invalid publisher mode %s", c.PublisherMode)
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

func GetBackendTypeStrings() []string {
	out := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		out[i] = t.String()
	}
	return out
}
