package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StatementImportMessage asks the import worker to load a statement CSV into
// the relational store. Path is a local file path or a gs:// URI.
type StatementImportMessage struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	Replace   bool      `json:"replace"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStatementImportMessage(path string, replace bool) *StatementImportMessage {
	return &StatementImportMessage{
		ID:        uuid.New(),
		Path:      path,
		Replace:   replace,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatementImportMessageFromJSON decodes a message and rejects one without a path.
func StatementImportMessageFromJSON(data []byte) (*StatementImportMessage, error) {
	var msg StatementImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Path == "" {
		return nil, errors.New("statement import message has no path")
	}
	return &msg, nil
}
