package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Request is the wire body of POST /api/chat.
type Request struct {
	Message string        `json:"message"`
	History []HistoryItem `json:"history,omitempty"`
}

// HistoryItem is one prior turn in wire form (role "user" or "model").
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the success envelope returned by the proxy.
type Reply struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ErrTimeout marks a send that was aborted by the request timeout. The
// store surfaces it as a distinct "timed out" error.
var ErrTimeout = errors.New("chat: request timed out")

// RateLimitError carries the server's retry hint from a 429 response.
// A zero RetryAfter means no hint was provided.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "chat: rate limited"
}

// Transport sends one chat request. The store never retries through it
// automatically; retry is an explicit user action.
type Transport interface {
	Send(ctx context.Context, req Request) (*Reply, error)
}

// HTTPTransport talks to the chat proxy over HTTP.
type HTTPTransport struct {
	client *resty.Client
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &HTTPTransport{client: c}
}

func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Reply, error) {
	var reply Reply
	var fail struct {
		Error        string `json:"error"`
		RetryAfterMs int64  `json:"retryAfterMs"`
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&reply).
		SetError(&fail).
		Post("/api/chat")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("chat: send: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: time.Duration(fail.RetryAfterMs) * time.Millisecond}
	}
	if resp.IsError() {
		msg := fail.Error
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("chat: server error: %s", msg)
	}
	if reply.Reply == "" {
		return nil, errors.New("chat: malformed reply from server")
	}
	return &reply, nil
}
