package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mhoward-dev/portfolio-chat/internal/ai"
	"github.com/mhoward-dev/portfolio-chat/internal/sanitize"
)

// maxHistoryItems bounds how many prior turns are forwarded upstream.
const maxHistoryItems = 10

// maxBodyBytes bounds the request body read.
const maxBodyBytes = 64 * 1024

// safetyRefusal is returned as a normal 200 reply when the model
// withholds an answer on content-policy grounds.
const safetyRefusal = "I'd rather keep things professional. I'm happy to answer questions about Michael's work, experience, or background."

type chatResponse struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type chatError struct {
	Error           string   `json:"error"`
	RetryAfterMs    int64    `json:"retryAfterMs,omitempty"`
	AttemptedModels []string `json:"attemptedModels,omitempty"`
}

// HandleChat validates and sanitizes the request, assembles the model
// conversation and walks the fallback chain. Upstream error bodies are
// never forwarded; failures map onto the fixed error taxonomy.
func (h *Handler) HandleChat(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, chatError{Error: "Could not read request body"})
		return
	}

	req, reason := sanitize.ValidateChatRequest(body)
	if reason != "" {
		c.JSON(http.StatusBadRequest, chatError{Error: reason})
		return
	}

	message := sanitize.Clean(req.Message, sanitize.MaxMessageRunes)
	if message == "" {
		c.JSON(http.StatusBadRequest, chatError{Error: "Message cannot be empty"})
		return
	}

	if h.Cfg.GeminiAPIKey == "" {
		c.JSON(http.StatusServiceUnavailable, chatError{Error: "Chat service is not configured"})
		return
	}

	hist := sanitizeHistory(req.History)
	contents := buildContents(hist, message)

	res := h.Chain.Run(c.Request.Context(), contents)

	switch res.Outcome.Kind {
	case ai.OutcomeReply:
		c.JSON(http.StatusOK, chatResponse{
			Reply:       res.Outcome.Reply,
			Suggestions: h.Suggest.Suggestions(message, res.Outcome.Reply, hist),
		})

	case ai.OutcomeSafetyBlocked:
		log.Printf("[HandleChat] safety block from %s: %s", res.Model, res.Outcome.Detail)
		c.JSON(http.StatusOK, chatResponse{Reply: safetyRefusal})

	case ai.OutcomeAuthFailed:
		log.Printf("[HandleChat] upstream auth failure: %s", res.Outcome.Detail)
		c.JSON(http.StatusServiceUnavailable, chatError{Error: "Chat service authentication error"})

	case ai.OutcomeBadRequest:
		log.Printf("[HandleChat] upstream rejected request: %s", res.Outcome.Detail)
		c.JSON(http.StatusBadGateway, chatError{
			Error:           "Chat service could not process the request",
			AttemptedModels: res.Attempted,
		})

	case ai.OutcomeRateLimited:
		c.JSON(http.StatusTooManyRequests, chatError{
			Error:           "Too many requests. Please try again shortly.",
			RetryAfterMs:    res.RetryAfter.Milliseconds(),
			AttemptedModels: res.Attempted,
		})

	case ai.OutcomeTimeout:
		log.Printf("[HandleChat] all models failed, last was timeout")
		c.JSON(http.StatusGatewayTimeout, chatError{
			Error:           "Chat service timed out",
			AttemptedModels: res.Attempted,
		})

	default:
		log.Printf("[HandleChat] chain exhausted: %s", res.Outcome.Detail)
		c.JSON(http.StatusBadGateway, chatError{
			Error:           "Chat service is temporarily unavailable",
			AttemptedModels: res.Attempted,
		})
	}
}

// sanitizeHistory cleans each history turn and keeps the most recent
// maxHistoryItems non-empty ones.
func sanitizeHistory(items []sanitize.HistoryItem) []sanitize.HistoryItem {
	cleaned := make([]sanitize.HistoryItem, 0, len(items))
	for _, item := range items {
		content := sanitize.Clean(item.Content, sanitize.MaxMessageRunes)
		if content == "" {
			continue
		}
		cleaned = append(cleaned, sanitize.HistoryItem{Role: item.Role, Content: content})
	}
	if len(cleaned) > maxHistoryItems {
		cleaned = cleaned[len(cleaned)-maxHistoryItems:]
	}
	return cleaned
}
