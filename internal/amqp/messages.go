package amqp

import (
	"encoding/json"
	"time"

	"spendsync/internal/core"
)

// ExpensesMergedMessage announces a completed bulk upsert. It carries ids
// only; consumers read the records from the server.
type ExpensesMergedMessage struct {
	Source    string    `json:"source"`
	IDs       []string  `json:"ids"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpensesMergedMessage builds the message for ev. A zero ev.At is
// replaced by the current time.
func NewExpensesMergedMessage(ev core.MergeEvent) *ExpensesMergedMessage {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	ids := ev.IDs
	if ids == nil {
		ids = []string{}
	}
	return &ExpensesMergedMessage{
		Source:    string(ev.Source),
		IDs:       ids,
		Count:     len(ids),
		Timestamp: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpensesMergedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpensesMergedMessageFromJSON creates a message from JSON bytes
func ExpensesMergedMessageFromJSON(data []byte) (*ExpensesMergedMessage, error) {
	var msg ExpensesMergedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
