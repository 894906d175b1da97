package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finledger/internal/core"
)

type EventKind string

const (
	KindTransactionChanged EventKind = "transaction.changed"
	KindBudgetChanged      EventKind = "budget.changed"
)

func (k EventKind) IsValid() bool {
	return k == KindTransactionChanged || k == KindBudgetChanged
}

// LedgerEvent announces that a user's ledger changed for one period.
// Consumers re-read current state; the event carries no amounts.
type LedgerEvent struct {
	Kind      EventKind   `json:"kind"`
	UserID    string      `json:"user_id"`
	Period    core.Period `json:"period"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, userID string, period core.Period) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		UserID:    userID,
		Period:    period,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("event without user_id")
	}
	if msg.Period.IsZero() {
		return nil, fmt.Errorf("event without period")
	}
	return &msg, nil
}
