// Package adjudicator implements the AI Adjudicator (C6) shared by two call
// sites: the classifier fallback (incident/not-incident) and the Tier-3
// duplicate decision (C9). Both sites share one round-robin, cache-backed,
// tolerant-parsing adjudication path; only the prompt and result shape
// differ.
package adjudicator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrUnavailable is returned when every backend in the round-robin list has
// been exhausted without a usable response. Callers must fall through to
// their precomputed (non-AI) verdict and flag ai_unavailable / llm_unavailable.
var ErrUnavailable = errors.New("adjudicator: no backend produced a usable response")

// maxConfidence caps reported confidence; the adjudicator never asserts
// absolute certainty.
const maxConfidence = 0.95

// Backend is one callable model in the round-robin list. Implementations
// wrap a specific provider SDK (OpenAI-compatible, Anthropic) behind a
// single deterministic, text-in/text-out call shape.
type Backend interface {
	// Name identifies the backend for logging and cache diagnostics.
	Name() string
	// Complete sends systemPrompt/userPrompt at temperature 0 and returns
	// the raw response text. A non-nil RetryableError indicates the caller
	// should try the next backend in the list.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RetryableError wraps an upstream error that the round-robin should treat
// as a signal to try the next backend (429 rate limit, 5xx server error)
// rather than a fatal failure.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err (or one it wraps) signals a 429/5xx the
// round-robin should fail over on, judged the same way the teacher's
// enrichment client detects rate limits: by substring match on the error
// text, since provider SDKs don't expose a typed status code uniformly.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "too many requests", "rate limit", "500", "502", "503", "504", "server error", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Adjudicator round-robins over an ordered backend list, retrying the next
// backend on a retryable error, and gives up after exhausting the list.
type Adjudicator struct {
	backends []Backend
	cache    *ResponseCache
	logger   *slog.Logger
}

// New builds an Adjudicator over the given backends in priority order.
func New(backends []Backend, cache *ResponseCache, logger *slog.Logger) *Adjudicator {
	return &Adjudicator{backends: backends, cache: cache, logger: logger}
}

// complete tries each backend in order, returning the first usable response.
// cacheKey is a stable hash of the prompt inputs; a cache hit skips every
// backend call.
func (a *Adjudicator) complete(ctx context.Context, cacheKey, systemPrompt, userPrompt string) (string, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	var lastErr error
	for _, backend := range a.backends {
		text, err := backend.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			if a.cache != nil {
				a.cache.Set(cacheKey, text)
			}
			return text, nil
		}
		lastErr = err
		a.logger.Warn("adjudicator backend failed",
			"backend", backend.Name(), "retryable", IsRetryable(err), "error", err)
		if !IsRetryable(err) {
			return "", err
		}
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return "", ErrUnavailable
}

func capConfidence(c float64) float64 {
	if c > maxConfidence {
		return maxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}
