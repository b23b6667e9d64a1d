// Package governor bounds how aggressively cardwatch hits a single shop:
// a semaphore caps in-flight scrapes, a token bucket caps request rate,
// and jittered delay spreads requests out before each navigation.
package governor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/metrics"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Governor gates outbound navigations for one shop. Acquire must be called
// (and its release func deferred) before every Scraper.Scrape call that
// navigates; Release returns the concurrency slot without waiting out the
// jittered delay again.
type Governor struct {
	shopID   string
	sem      chan struct{}
	limiter  *rate.Limiter
	delay    time.Duration
	jitter   float64
	proxyURL string
	rngMu    sync.Mutex
	rng      *rand.Rand
}

// New builds a Governor for one shop, resolving per-shop overrides in
// shop.AntiBot against the process-wide defaults in def, and binding the
// proxy URL only when both the global config and the shop opt in.
func New(shop domain.ShopConfig, def config.GovernorConfig, proxyURL string) *Governor {
	maxConcurrency := def.MaxConcurrency
	if shop.AntiBot.MaxConcurrency > 0 {
		maxConcurrency = shop.AntiBot.MaxConcurrency
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	delay := def.RequestDelay
	if shop.AntiBot.RequestDelayMs > 0 {
		delay = time.Duration(shop.AntiBot.RequestDelayMs) * time.Millisecond
	}

	ratePerSecond := def.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = float64(maxConcurrency)
	}
	rateBurst := def.RateBurst
	if rateBurst < 1 {
		rateBurst = maxConcurrency
	}

	var boundProxy string
	if def.ProxyEnabled && shop.AntiBot.UseProxy {
		boundProxy = proxyURL
	}

	return &Governor{
		shopID:   shop.ID,
		sem:      make(chan struct{}, maxConcurrency),
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), rateBurst),
		delay:    delay,
		jitter:   def.JitterFraction,
		proxyURL: boundProxy,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ProxyURL returns the rotating-proxy URL this shop's engine should bind to,
// or "" when proxying is not enabled for this shop.
func (g *Governor) ProxyURL() string {
	return g.proxyURL
}

// Acquire blocks until a concurrency slot is free, the rate limiter admits
// the call, and the jittered per-request delay has elapsed, in that order.
// The returned release func must be called exactly once, typically deferred.
func (g *Governor) Acquire(ctx context.Context) (release func(), err error) {
	start := time.Now()
	defer func() {
		metrics.GovernorWaitDuration.WithLabelValues(g.shopID).Observe(time.Since(start).Seconds())
	}()

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("governor: waiting for %s concurrency slot: %w", g.shopID, ctx.Err())
	}
	metrics.GovernorInFlight.WithLabelValues(g.shopID).Inc()

	release = func() {
		<-g.sem
		metrics.GovernorInFlight.WithLabelValues(g.shopID).Dec()
	}

	if g.limiter.Tokens() < 1 {
		metrics.GovernorRateLimitedTotal.WithLabelValues(g.shopID).Inc()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		release()
		return nil, fmt.Errorf("governor: rate limiter wait for %s: %w", g.shopID, err)
	}

	if err := g.sleepJittered(ctx); err != nil {
		release()
		return nil, fmt.Errorf("governor: jittered delay for %s: %w", g.shopID, err)
	}

	return release, nil
}

// sleepJittered sleeps delay*(1±jitter) using a uniform draw, honoring
// context cancellation.
func (g *Governor) sleepJittered(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}

	g.rngMu.Lock()
	factor := 1 + (g.rng.Float64()*2-1)*g.jitter
	g.rngMu.Unlock()

	wait := time.Duration(float64(g.delay) * factor)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
