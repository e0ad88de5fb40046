package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operations carried by LedgerChangedMessage.
const (
	OpAddTransaction = "add_transaction"
	OpAddSeries      = "add_series"
	OpEditUnique     = "edit_unique"
	OpEditOnlyMonth  = "edit_only_month"
	OpSplitSeries    = "split_series"
	OpImport         = "import"
)

// LedgerChangedMessage announces a committed ledger write. Year and Month name
// the earliest month whose view changed; consumers re-read the store.
type LedgerChangedMessage struct {
	Operation string    `json:"operation"`
	EntityID  string    `json:"entity_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(op, entityID string, year, month int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Operation: op,
		EntityID:  entityID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Month < 1 || msg.Month > 12 || msg.Year < 1 {
		return nil, fmt.Errorf("invalid month %d-%d in message", msg.Year, msg.Month)
	}
	return &msg, nil
}
