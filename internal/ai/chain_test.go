package ai

import (
	"context"
	"testing"
	"time"
)

// scriptedGenerator returns one pre-set outcome per model and records
// the order models were tried in.
type scriptedGenerator struct {
	outcomes map[string]Outcome
	calls    []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, model string, contents []Content) Outcome {
	g.calls = append(g.calls, model)
	return g.outcomes[model]
}

func TestChainFirstModelSucceeds(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeReply, Reply: "hi"},
	}}
	ch := &Chain{Models: []string{"a", "b"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeReply || res.Model != "a" {
		t.Fatalf("res = %+v", res)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %v, want just a", gen.calls)
	}
}

func TestChainFallsBackPastFailures(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeUpstreamError, Detail: "503"},
		"b": {Kind: OutcomeMalformed, Detail: "no candidates"},
		"c": {Kind: OutcomeReply, Reply: "finally"},
	}}
	ch := &Chain{Models: []string{"a", "b", "c"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeReply || res.Outcome.Reply != "finally" {
		t.Fatalf("res = %+v", res)
	}
	if res.Model != "c" {
		t.Fatalf("model = %q", res.Model)
	}
	if len(res.Attempted) != 3 {
		t.Fatalf("attempted = %v", res.Attempted)
	}
}

func TestChainAbortsOnAuthFailure(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeAuthFailed, Detail: "bad key"},
	}}
	ch := &Chain{Models: []string{"a", "b", "c"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeAuthFailed {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %v, auth failure must not fall back", gen.calls)
	}
}

func TestChainAbortsOnBadRequest(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeBadRequest, Detail: "invalid argument"},
	}}
	ch := &Chain{Models: []string{"a", "b"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeBadRequest {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %v", gen.calls)
	}
}

func TestChainSafetyBlockShortCircuits(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeSafetyBlocked, Detail: "SAFETY"},
	}}
	ch := &Chain{Models: []string{"a", "b"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeSafetyBlocked || res.Model != "a" {
		t.Fatalf("res = %+v", res)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %v, safety block must not fall back", gen.calls)
	}
}

func TestChainAllRateLimited(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeRateLimited, RetryAfter: 5 * time.Second},
		"b": {Kind: OutcomeRateLimited, RetryAfter: 21 * time.Second},
		"c": {Kind: OutcomeRateLimited},
	}}
	ch := &Chain{Models: []string{"a", "b", "c"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeRateLimited {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
	if !res.AllRateLimited {
		t.Fatal("AllRateLimited = false")
	}
	if res.RetryAfter != 21*time.Second {
		t.Fatalf("retryAfter = %v, want the largest hint", res.RetryAfter)
	}
	if len(res.Attempted) != 3 {
		t.Fatalf("attempted = %v", res.Attempted)
	}
}

func TestChainMixedFailuresNotRateLimited(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeRateLimited, RetryAfter: 5 * time.Second},
		"b": {Kind: OutcomeUpstreamError, Detail: "503"},
	}}
	ch := &Chain{Models: []string{"a", "b"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeUpstreamError {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
	if res.AllRateLimited {
		t.Fatal("AllRateLimited = true after a non-429 failure")
	}
}

func TestChainLastTimeoutWins(t *testing.T) {
	gen := &scriptedGenerator{outcomes: map[string]Outcome{
		"a": {Kind: OutcomeUpstreamError, Detail: "503"},
		"b": {Kind: OutcomeTimeout, Detail: "deadline exceeded"},
	}}
	ch := &Chain{Models: []string{"a", "b"}, Client: gen}

	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeTimeout {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
}

func TestChainNoModels(t *testing.T) {
	ch := &Chain{Client: &scriptedGenerator{}}
	res := ch.Run(context.Background(), nil)
	if res.Outcome.Kind != OutcomeUpstreamError {
		t.Fatalf("kind = %s", res.Outcome.Kind)
	}
	if len(res.Attempted) != 0 {
		t.Fatalf("attempted = %v", res.Attempted)
	}
}
