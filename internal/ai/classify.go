package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OutcomeKind classifies a single model attempt.
type OutcomeKind int

const (
	// OutcomeReply: a usable, non-empty reply was produced.
	OutcomeReply OutcomeKind = iota
	// OutcomeSafetyBlocked: the model withheld the reply on content
	// policy grounds. Treated as a successful turn, not an error.
	OutcomeSafetyBlocked
	// OutcomeRateLimited: HTTP 429; the next model may have quota.
	OutcomeRateLimited
	// OutcomeAuthFailed: HTTP 401/403; retrying other models is pointless.
	OutcomeAuthFailed
	// OutcomeBadRequest: any other 4xx; the request itself is broken.
	OutcomeBadRequest
	// OutcomeUpstreamError: 5xx or a network failure.
	OutcomeUpstreamError
	// OutcomeTimeout: the attempt's deadline elapsed.
	OutcomeTimeout
	// OutcomeMalformed: 2xx with unusable payload (bad JSON, no
	// candidates, empty text).
	OutcomeMalformed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeSafetyBlocked:
		return "safety_blocked"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeAuthFailed:
		return "auth_failed"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeUpstreamError:
		return "upstream_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one model attempt.
type Outcome struct {
	Kind       OutcomeKind
	Reply      string
	RetryAfter time.Duration
	Detail     string
}

// Classify maps a raw attempt result to an Outcome. It is pure over its
// inputs so the chain logic stays testable without a network.
func Classify(status int, body []byte, retryAfterHeader string, err error) Outcome {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeTimeout, Detail: err.Error()}
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return Outcome{Kind: OutcomeTimeout, Detail: err.Error()}
		}
		return Outcome{Kind: OutcomeUpstreamError, Detail: err.Error()}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Outcome{Kind: OutcomeAuthFailed, Detail: errorDetail(body)}
	case status == http.StatusTooManyRequests:
		return Outcome{
			Kind:       OutcomeRateLimited,
			RetryAfter: retryAfterHint(body, retryAfterHeader),
			Detail:     errorDetail(body),
		}
	case status >= 500:
		return Outcome{Kind: OutcomeUpstreamError, Detail: errorDetail(body)}
	case status >= 400:
		return Outcome{Kind: OutcomeBadRequest, Detail: errorDetail(body)}
	}

	var decoded generateResponse
	if jsonErr := json.Unmarshal(body, &decoded); jsonErr != nil {
		return Outcome{Kind: OutcomeMalformed, Detail: "invalid json: " + jsonErr.Error()}
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return Outcome{Kind: OutcomeSafetyBlocked, Detail: decoded.PromptFeedback.BlockReason}
	}
	if len(decoded.Candidates) == 0 {
		return Outcome{Kind: OutcomeMalformed, Detail: "no candidates"}
	}
	cand := decoded.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return Outcome{Kind: OutcomeSafetyBlocked, Detail: "finishReason=SAFETY"}
	}

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return Outcome{Kind: OutcomeMalformed, Detail: "empty reply text"}
	}
	return Outcome{Kind: OutcomeReply, Reply: reply}
}

func errorDetail(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Error.Message == "" {
		return ""
	}
	return decoded.Error.Message
}

// retryAfterHint extracts a retry hint from the google.rpc.RetryInfo
// error detail, falling back to the Retry-After header.
func retryAfterHint(body []byte, header string) time.Duration {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, d := range decoded.Error.Details {
			if !strings.HasSuffix(d.Type, "RetryInfo") || d.RetryDelay == "" {
				continue
			}
			if dur, err := time.ParseDuration(d.RetryDelay); err == nil && dur > 0 {
				return dur
			}
		}
	}
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
