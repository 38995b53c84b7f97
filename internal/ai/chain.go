package ai

import (
	"context"
	"log"
	"time"
)

// Generator is one model attempt. Satisfied by *Client; faked in tests.
type Generator interface {
	Generate(ctx context.Context, model string, contents []Content) Outcome
}

// ChainResult is the aggregate of a full fallback run.
type ChainResult struct {
	// Outcome of the attempt that ended the run: the successful one,
	// the aborting one, or a synthesized exhaustion outcome.
	Outcome Outcome
	// Model that produced Outcome when Kind is OutcomeReply or
	// OutcomeSafetyBlocked.
	Model string
	// Every model tried, in order, for diagnostics.
	Attempted []string
	// True when every attempt came back rate-limited.
	AllRateLimited bool
	// Largest retry hint observed across rate-limited attempts.
	RetryAfter time.Duration
}

// Chain tries an ordered list of models until one yields a usable
// reply. Attempts are strictly sequential: the next model is consulted
// only after the previous outcome is classified.
type Chain struct {
	Models []string
	Client Generator
}

func (ch *Chain) Run(ctx context.Context, contents []Content) ChainResult {
	res := ChainResult{AllRateLimited: true}
	var last Outcome

	for _, model := range ch.Models {
		out := ch.Client.Generate(ctx, model, contents)
		res.Attempted = append(res.Attempted, model)
		last = out

		switch out.Kind {
		case OutcomeReply, OutcomeSafetyBlocked:
			res.Outcome = out
			res.Model = model
			res.AllRateLimited = false
			return res

		case OutcomeAuthFailed, OutcomeBadRequest:
			// Not model-specific; trying the rest of the chain cannot help.
			res.Outcome = out
			res.AllRateLimited = false
			return res

		case OutcomeRateLimited:
			if out.RetryAfter > res.RetryAfter {
				res.RetryAfter = out.RetryAfter
			}
			log.Printf("[Chain] model %s rate-limited, advancing", model)

		default:
			// Timeout, upstream error or malformed payload: advance.
			res.AllRateLimited = false
			log.Printf("[Chain] model %s failed (%s): %s", model, out.Kind, out.Detail)
		}
	}

	if len(res.Attempted) == 0 {
		res.AllRateLimited = false
		res.Outcome = Outcome{Kind: OutcomeUpstreamError, Detail: "no models configured"}
		return res
	}

	if res.AllRateLimited {
		res.Outcome = Outcome{Kind: OutcomeRateLimited, RetryAfter: res.RetryAfter, Detail: "all models rate-limited"}
		return res
	}
	if last.Kind == OutcomeTimeout {
		res.Outcome = Outcome{Kind: OutcomeTimeout, Detail: last.Detail}
		return res
	}
	res.Outcome = Outcome{Kind: OutcomeUpstreamError, Detail: last.Detail}
	return res
}
