package shopengine

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/cardwatch/cardwatch/pkg/selector"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// maxGotoAttempts bounds the total number of navigation attempts (the first
// try plus retries) before a Goto call is allowed to fail out to the caller.
const maxGotoAttempts = 5

// retryingEngine wraps an Engine so transient navigation failures (timeouts,
// connection resets, 5xx) are retried with exponential backoff and jitter
// before the scraper ever observes them. Only Goto is retried; extraction
// calls operate on an already-loaded document and have nothing to retry.
type retryingEngine struct {
	inner Engine
}

func withRetry(e Engine) Engine {
	return &retryingEngine{inner: e}
}

func (r *retryingEngine) Goto(ctx context.Context, url string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(newGotoBackOff(), maxGotoAttempts-1), ctx)
	return backoff.Retry(func() error {
		return r.inner.Goto(ctx, url)
	}, policy)
}

// newGotoBackOff implements delay(attempt) = min(300s, 1s * 2^(attempt-1))
// with randomized jitter, matching the engine layer's retry contract.
func newGotoBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialRetryDelay
	b.Multiplier = 2
	b.MaxInterval = maxRetryDelay
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0 // bounded by maxGotoAttempts, not elapsed wall time
	return b
}

func (r *retryingEngine) Extract(ctx context.Context, sel domain.Selector) (string, bool) {
	return r.inner.Extract(ctx, sel)
}

func (r *retryingEngine) ExtractAll(ctx context.Context, sel domain.Selector) []selector.Element {
	return r.inner.ExtractAll(ctx, sel)
}

func (r *retryingEngine) Exists(ctx context.Context, sel domain.Selector) bool {
	return r.inner.Exists(ctx, sel)
}

func (r *retryingEngine) CurrentURL() string {
	return r.inner.CurrentURL()
}

func (r *retryingEngine) Close() error {
	return r.inner.Close()
}
