package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"chitieu/internal/store"
)

const routingPrefix = "record."

// RecordEvent is the message published for every store mutation.
// Record fields are empty for "cleared" events; Count carries the number
// of records affected.
type RecordEvent struct {
	Type      string     `json:"type"`
	RecordID  string     `json:"record_id,omitempty"`
	Amount    string     `json:"amount,omitempty"`
	Category  string     `json:"category,omitempty"`
	Note      string     `json:"note,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Count     int        `json:"count"`
	EmittedAt time.Time  `json:"emitted_at"`
}

func NewRecordEvent(e store.Event) *RecordEvent {
	msg := &RecordEvent{
		Type:      string(e.Kind),
		Count:     e.Count,
		EmittedAt: e.At.UTC(),
	}
	if e.Kind != store.EventCleared {
		msg.RecordID = e.Record.ID
		msg.Amount = e.Record.Amount.String()
		msg.Category = string(e.Record.Category)
		msg.Note = e.Record.Note
		ts := e.Record.Timestamp.UTC()
		msg.Timestamp = &ts
	}
	if msg.EmittedAt.IsZero() {
		msg.EmittedAt = time.Now().UTC()
	}
	return msg
}

// RoutingKey returns "record.<type>".
func (m *RecordEvent) RoutingKey() string {
	return routingPrefix + m.Type
}

func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes a message and rejects unknown event types.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch store.EventKind(msg.Type) {
	case store.EventCreated, store.EventRemoved, store.EventCleared:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
