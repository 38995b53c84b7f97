// Package sanitize holds the pure validation and sanitization helpers
// shared by the chat proxy. None of these functions touch the network
// or carry state.
package sanitize

import (
	"encoding/json"
	"strings"
)

// MaxMessageRunes is the post-sanitization length cap applied to the
// user message and every history item.
const MaxMessageRunes = 500

// ChatRequest is the validated shape of a POST /api/chat body.
type ChatRequest struct {
	Message string        `json:"message"`
	History []HistoryItem `json:"history,omitempty"`
}

// HistoryItem is one prior conversation turn in wire form. Role "model"
// is the wire name for assistant turns.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Clean trims the string, removes control characters and clamps it to
// maxRunes runes. Control characters are stripped outright so upstream
// prompts and server logs cannot be corrupted by crafted input.
func Clean(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if r < 0x20 || (r >= 0x7f && r < 0xa0) {
			continue
		}
		b.WriteRune(r)
		n++
		if n >= maxRunes {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// ValidateChatRequest checks an undecoded request body against the
// expected shape. It returns the decoded request and an empty reason on
// success, or a zero request and a human-readable rejection reason.
func ValidateChatRequest(body []byte) (ChatRequest, string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ChatRequest{}, "Request body must be a JSON object"
	}

	msgRaw, okMsg := raw["message"]
	if !okMsg {
		return ChatRequest{}, "Message is required"
	}
	var msg string
	if err := json.Unmarshal(msgRaw, &msg); err != nil {
		return ChatRequest{}, "Message must be a string"
	}

	req := ChatRequest{Message: msg}

	histRaw, okHist := raw["history"]
	if okHist && string(histRaw) != "null" {
		var items []json.RawMessage
		if err := json.Unmarshal(histRaw, &items); err != nil {
			return ChatRequest{}, "History must be an array"
		}
		for _, itemRaw := range items {
			var item HistoryItem
			if err := json.Unmarshal(itemRaw, &item); err != nil {
				return ChatRequest{}, "History items must be objects with role and content strings"
			}
			if item.Role != "user" && item.Role != "model" {
				return ChatRequest{}, "History roles must be \"user\" or \"model\""
			}
			req.History = append(req.History, item)
		}
	}

	return req, ""
}

// OriginAllowed reports whether origin may be echoed back in CORS
// headers. An origin qualifies by exact allow-list membership or by a
// local-development prefix. Prefix matching (never suffix or substring)
// keeps lookalike domains such as evil-localhost.com out.
func OriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}
