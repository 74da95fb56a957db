package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks the worker to re-import the worksheet.
type RefreshMessage struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage stamps a refresh request with a fresh ID.
func NewRefreshMessage(reason string) *RefreshMessage {
	return &RefreshMessage{
		RequestID:   uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message body. A request ID is required.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RequestID == "" {
		return nil, errors.New("refresh message without request_id")
	}
	return &msg, nil
}
