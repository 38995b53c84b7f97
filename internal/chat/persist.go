package chat

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mhoward-dev/portfolio-chat/internal/history"
)

const (
	// DefaultStorageKey is the single namespaced key the store persists
	// under. Nothing outside this package should write to it.
	DefaultStorageKey = "portfolio_chat_history"

	// maxPersistedMessages caps the serialized history.
	maxPersistedMessages = 50
)

var errHistoryExpired = errors.New("chat: persisted history expired")

type persistedMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type persistedHistory struct {
	Messages []persistedMessage `json:"messages"`
	SavedAt  time.Time          `json:"savedAt"`
}

// encodeHistory serializes the most recent maxPersistedMessages turns
// with a fresh savedAt stamp.
func encodeHistory(msgs []Message, now time.Time) ([]byte, error) {
	start := 0
	if len(msgs) > maxPersistedMessages {
		start = len(msgs) - maxPersistedMessages
	}
	ph := persistedHistory{SavedAt: now}
	for _, m := range msgs[start:] {
		ph.Messages = append(ph.Messages, persistedMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339Nano),
		})
	}
	return json.Marshal(ph)
}

// decodeHistory parses persisted history. Entries older than the TTL
// are discarded entirely via errHistoryExpired; any structural problem
// is an error so the caller can delete the corrupt blob.
func decodeHistory(data []byte, now time.Time) ([]Message, error) {
	var ph persistedHistory
	if err := json.Unmarshal(data, &ph); err != nil {
		return nil, err
	}
	if ph.SavedAt.IsZero() || now.Sub(ph.SavedAt) > history.DefaultTTL {
		return nil, errHistoryExpired
	}

	msgs := make([]Message, 0, len(ph.Messages))
	for _, pm := range ph.Messages {
		role := Role(pm.Role)
		if role != RoleUser && role != RoleAssistant {
			return nil, errors.New("chat: unknown role in persisted history")
		}
		ts, err := time.Parse(time.RFC3339Nano, pm.Timestamp)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{
			ID:        pm.ID,
			Role:      role,
			Content:   pm.Content,
			Timestamp: ts,
		})
	}
	return msgs, nil
}
