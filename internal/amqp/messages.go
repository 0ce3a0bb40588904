package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedMessage marks a delivery that can never be processed and
// must not be requeued.
var ErrMalformedMessage = errors.New("malformed sync message")

// TransactionSyncMessage asks the worker to export one transaction. The row
// itself is reloaded from storage, so a redelivered message exports the
// current state.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id int64, userID string) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, UserID: userID, Timestamp: time.Now().UTC()}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (m *TransactionSyncMessage) validate() error {
	switch {
	case m.ID <= 0:
		return fmt.Errorf("%w: id %d", ErrMalformedMessage, m.ID)
	case strings.TrimSpace(m.UserID) == "":
		return fmt.Errorf("%w: missing user_id", ErrMalformedMessage)
	}
	return nil
}

// TransactionSyncMessageFromJSON decodes and validates a delivery body.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
