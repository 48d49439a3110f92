package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvalidationMessage tells every instance sharing the exchange to drop cache
// entries. Pattern is a regular expression over keys; Keys names exact keys.
type InvalidationMessage struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Pattern   string    `json:"pattern,omitempty"`
	Keys      []string  `json:"keys,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var errEmptyInvalidation = errors.New("invalidation names neither a pattern nor keys")

func NewInvalidationMessage(source, pattern string, keys []string) *InvalidationMessage {
	return &InvalidationMessage{
		ID:        uuid.New(),
		Source:    source,
		Pattern:   pattern,
		Keys:      keys,
		Timestamp: time.Now(),
	}
}

func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvalidationMessageFromJSON decodes a message and rejects ones that would
// invalidate nothing.
func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Pattern == "" && len(msg.Keys) == 0 {
		return nil, fmt.Errorf("message %s: %w", msg.ID, errEmptyInvalidation)
	}
	return &msg, nil
}
