// Package chat implements the client-side conversation store for the
// portfolio chat widget: message history, send/retry/clear commands,
// rate-limit countdown and 24h persistence. UI layers only invoke the
// commands and render the state snapshot.
package chat

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mhoward-dev/portfolio-chat/internal/common"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Immutable once created; the only
// removal path is RetryLastMessage dropping the failed user turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(role Role, content string) Message {
	id, err := common.NewULID()
	if err != nil {
		// Entropy failure fallback; still unique enough in practice.
		b := make([]byte, 4)
		_, _ = rand.Read(b)
		id = fmt.Sprintf("msg_%d_%s", time.Now().UnixNano(), hex.EncodeToString(b))
	}
	return Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// maxHistoryItems bounds the prior turns sent to the proxy.
const maxHistoryItems = 10

// historyItems maps messages to wire form, keeping only the most
// recent maxHistoryItems. Role "model" is the wire name for assistant.
func historyItems(msgs []Message) []HistoryItem {
	start := 0
	if len(msgs) > maxHistoryItems {
		start = len(msgs) - maxHistoryItems
	}
	out := make([]HistoryItem, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, HistoryItem{Role: role, Content: m.Content})
	}
	return out
}
