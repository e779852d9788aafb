package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"catat/internal/core"
)

// EntryRecordedMessage is published after every successful ledger write.
// It carries the full entry so consumers never read the ledger back.
type EntryRecordedMessage struct {
	Kind       core.EntryKind `json:"kind"`
	Amount     int64          `json:"amount"`
	RecordedAt time.Time      `json:"recorded_at"`
	Sender     string         `json:"sender"`
	Timestamp  time.Time      `json:"timestamp"`
}

func NewEntryRecordedMessage(e core.EntryRecorded) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		Kind:       e.Kind,
		Amount:     e.Amount,
		RecordedAt: e.RecordedAt,
		Sender:     e.Sender,
		Timestamp:  time.Now(),
	}
}

// Event converts the message back to the domain event.
func (m *EntryRecordedMessage) Event() core.EntryRecorded {
	return core.EntryRecorded{
		Kind:       m.Kind,
		Amount:     m.Amount,
		RecordedAt: m.RecordedAt,
		Sender:     m.Sender,
	}
}

func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryRecordedMessageFromJSON decodes and validates a message body.
func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Kind.Validate(); err != nil {
		return nil, err
	}
	if msg.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidAmount, msg.Amount)
	}
	if msg.RecordedAt.IsZero() {
		return nil, fmt.Errorf("missing recorded_at")
	}
	return &msg, nil
}
