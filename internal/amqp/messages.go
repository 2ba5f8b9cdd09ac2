package amqp

import (
	"encoding/json"
	"time"
)

// StatementIngestedMessage announces that a statement was ingested for a
// session. It is a lightweight nudge: the worker re-reads pending rows
// from the database, so the payload carries no transaction data.
type StatementIngestedMessage struct {
	SessionID string    `json:"session_id"`
	Imported  int       `json:"imported"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatementIngestedMessage creates a message for a freshly ingested statement.
func NewStatementIngestedMessage(sessionID string, imported int) *StatementIngestedMessage {
	return &StatementIngestedMessage{
		SessionID: sessionID,
		Imported:  imported,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementIngestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatementIngestedMessageFromJSON creates a message from JSON bytes
func StatementIngestedMessageFromJSON(data []byte) (*StatementIngestedMessage, error) {
	var msg StatementIngestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
