package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the generativelanguage generateContent endpoint. One
// Generate call is one attempt against one model; the fallback policy
// lives in Chain.
type Client struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: timeout,
		// No client-level timeout; the per-attempt ctx controls it.
		HTTPClient: &http.Client{},
	}
}

// Generate sends the assembled conversation to one model and classifies
// the result. A timeout here aborts only this attempt.
func (c *Client) Generate(ctx context.Context, model string, contents []Content) Outcome {
	reqBody := generateRequest{
		Contents:         contents,
		GenerationConfig: defaultGenerationConfig,
		SafetySettings:   defaultSafetySettings,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return Outcome{Kind: OutcomeMalformed, Detail: err.Error()}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.BaseURL, "/"), model)

	attemptCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Outcome{Kind: OutcomeUpstreamError, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Classify(0, nil, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Classify(0, nil, "", err)
	}

	return Classify(resp.StatusCode, body, resp.Header.Get("Retry-After"), nil)
}
