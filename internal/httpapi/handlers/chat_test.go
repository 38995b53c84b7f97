package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mhoward-dev/portfolio-chat/internal/ai"
	"github.com/mhoward-dev/portfolio-chat/internal/config"
	"github.com/mhoward-dev/portfolio-chat/internal/sanitize"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeChain returns a fixed result and records the contents it was
// asked to generate from.
type fakeChain struct {
	result ai.ChainResult
	calls  [][]ai.Content
}

func (f *fakeChain) Run(ctx context.Context, contents []ai.Content) ai.ChainResult {
	f.calls = append(f.calls, contents)
	return f.result
}

func newChatTestHandler(chain *fakeChain) *Handler {
	cfg := config.Load()
	cfg.GeminiAPIKey = "test-key"
	return &Handler{Cfg: cfg, Chain: chain, Suggest: NewKeywordSuggester()}
}

func doChat(h *Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	h.HandleChat(c)
	return w
}

func TestHandleChatSuccess(t *testing.T) {
	chain := &fakeChain{result: ai.ChainResult{
		Outcome: ai.Outcome{Kind: ai.OutcomeReply, Reply: "Michael has led engineering teams for 20+ years."},
		Model:   "gemini-2.0-flash",
	}}
	h := newChatTestHandler(chain)

	w := doChat(h, `{"message":"Tell me about Michael's experience"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Michael has led engineering teams for 20+ years.", resp.Reply)
	require.NotEmpty(t, resp.Suggestions)
	require.LessOrEqual(t, len(resp.Suggestions), 3)
}

func TestHandleChatInvalidBody(t *testing.T) {
	chain := &fakeChain{}
	h := newChatTestHandler(chain)

	cases := []struct {
		name       string
		body       string
		wantReason string
	}{
		{"not json", `oops`, "Request body must be a JSON object"},
		{"missing message", `{}`, "Message is required"},
		{"numeric message", `{"message":1}`, "Message must be a string"},
		{"bad history role", `{"message":"hi","history":[{"role":"bot","content":"x"}]}`, `History roles must be "user" or "model"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doChat(h, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp chatError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tc.wantReason, resp.Error)
		})
	}
	require.Empty(t, chain.calls, "invalid requests must never reach the chain")
}

func TestHandleChatEmptyAfterSanitization(t *testing.T) {
	chain := &fakeChain{}
	h := newChatTestHandler(chain)

	w := doChat(h, `{"message":"  \u0000\u0001  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp chatError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Message cannot be empty", resp.Error)
	require.Empty(t, chain.calls)
}

func TestHandleChatMissingAPIKey(t *testing.T) {
	chain := &fakeChain{}
	cfg := config.Load()
	cfg.GeminiAPIKey = ""
	h := &Handler{Cfg: cfg, Chain: chain, Suggest: NewKeywordSuggester()}

	w := doChat(h, `{"message":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp chatError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Chat service is not configured", resp.Error)
	require.Empty(t, chain.calls)
}

func TestHandleChatSafetyBlockIsOK(t *testing.T) {
	chain := &fakeChain{result: ai.ChainResult{
		Outcome: ai.Outcome{Kind: ai.OutcomeSafetyBlocked, Detail: "SAFETY"},
		Model:   "gemini-2.0-flash",
	}}
	h := newChatTestHandler(chain)

	w := doChat(h, `{"message":"something inappropriate"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, safetyRefusal, resp.Reply)
	require.Empty(t, resp.Suggestions)
}

func TestHandleChatErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		outcome    ai.Outcome
		wantStatus int
		wantError  string
	}{
		{"auth failed", ai.Outcome{Kind: ai.OutcomeAuthFailed}, http.StatusServiceUnavailable, "Chat service authentication error"},
		{"bad request upstream", ai.Outcome{Kind: ai.OutcomeBadRequest}, http.StatusBadGateway, "Chat service could not process the request"},
		{"timeout", ai.Outcome{Kind: ai.OutcomeTimeout}, http.StatusGatewayTimeout, "Chat service timed out"},
		{"upstream error", ai.Outcome{Kind: ai.OutcomeUpstreamError}, http.StatusBadGateway, "Chat service is temporarily unavailable"},
		{"malformed", ai.Outcome{Kind: ai.OutcomeMalformed}, http.StatusBadGateway, "Chat service is temporarily unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := &fakeChain{result: ai.ChainResult{
				Outcome:   tc.outcome,
				Attempted: []string{"gemini-2.0-flash", "gemini-1.5-flash"},
			}}
			h := newChatTestHandler(chain)

			w := doChat(h, `{"message":"hi"}`)
			require.Equal(t, tc.wantStatus, w.Code)

			var resp chatError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tc.wantError, resp.Error)
		})
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	chain := &fakeChain{result: ai.ChainResult{
		Outcome:        ai.Outcome{Kind: ai.OutcomeRateLimited, RetryAfter: 12 * time.Second},
		Attempted:      []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-8b"},
		RetryAfter:     12 * time.Second,
		AllRateLimited: true,
	}}
	h := newChatTestHandler(chain)

	w := doChat(h, `{"message":"hi"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp chatError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Too many requests. Please try again shortly.", resp.Error)
	require.Equal(t, int64(12000), resp.RetryAfterMs)
	require.Len(t, resp.AttemptedModels, 3)
}

func TestHandleChatContentsAssembly(t *testing.T) {
	chain := &fakeChain{result: ai.ChainResult{
		Outcome: ai.Outcome{Kind: ai.OutcomeReply, Reply: "ok"},
	}}
	h := newChatTestHandler(chain)

	history := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		history = append(history, `{"role":"`+role+`","content":"turn `+string(rune('a'+i))+`"}`)
	}
	body := `{"message":"latest question","history":[` + strings.Join(history, ",") + `]}`

	w := doChat(h, body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, chain.calls, 1)

	contents := chain.calls[0]
	// Grounding turn, ack turn, last 10 history turns, new message.
	require.Len(t, contents, 13)
	require.Equal(t, "user", contents[0].Role)
	require.Equal(t, "model", contents[1].Role)
	require.Equal(t, "turn e", contents[2].Parts[0].Text)
	require.Equal(t, "latest question", contents[12].Parts[0].Text)
}

func TestSanitizeHistoryDropsEmptyAndTruncates(t *testing.T) {
	items := []sanitize.HistoryItem{
		{Role: "user", Content: "   "},
		{Role: "model", Content: "\x00\x01"},
	}
	for i := 0; i < 12; i++ {
		items = append(items, sanitize.HistoryItem{Role: "user", Content: "keep"})
	}

	out := sanitizeHistory(items)
	require.Len(t, out, 10)
	for _, item := range out {
		require.Equal(t, "keep", item.Content)
	}
}
