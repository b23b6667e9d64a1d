// Package shopengine implements the two navigation/extraction backends a
// shop can be scraped with: a static HTTP fetch and a headless browser
// render, behind one shared Engine interface.
package shopengine

import (
	"context"
	"time"

	"github.com/cardwatch/cardwatch/pkg/selector"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// NavigationTimeout bounds how long a single Goto may take.
const NavigationTimeout = 15 * time.Second

// ActionTimeout is the time budget for a single Extract/ExtractAll/Exists
// call. Neither engine applies it: both run those calls against an
// already-parsed in-memory document, without a deadline.
const ActionTimeout = 5 * time.Second

// initialRetryDelay and maxRetryDelay bound the backoff applied to a failed
// Goto before it is retried (see retry.go).
const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 300 * time.Second
)

// Engine is the capability both scraping backends implement. Every method
// after Goto operates on the document produced by the most recent Goto
// call. Implementations must guarantee Close releases all resources even
// when Goto or an extraction call previously failed.
type Engine interface {
	// Goto navigates to url, establishing the document subsequent calls
	// operate against.
	Goto(ctx context.Context, url string) error

	// Extract resolves sel against the current document.
	Extract(ctx context.Context, sel domain.Selector) (string, bool)

	// ExtractAll resolves sel to a list of matching elements on the current
	// document (e.g. search-result article containers).
	ExtractAll(ctx context.Context, sel domain.Selector) []selector.Element

	// Exists reports whether sel resolves to anything on the current document.
	Exists(ctx context.Context, sel domain.Selector) bool

	// CurrentURL returns the URL of the document currently loaded, which
	// may differ from the Goto target after a redirect.
	CurrentURL() string

	// Close releases the engine's resources (HTTP client is a no-op;
	// headless browser tears down its tab/process).
	Close() error
}

// New constructs the Engine implementation named by typ. The returned Engine
// retries a failing Goto with exponential backoff before returning an error,
// so callers (the scraper) only ever see a navigation failure after every
// retry has been exhausted.
func New(typ domain.ShopEngine, opts ...Option) (Engine, error) {
	var (
		engine Engine
		err    error
	)
	switch typ {
	case domain.EngineHeadlessBrowser:
		engine, err = newHeadlessEngine(opts...)
	default: // domain.EngineStaticHTML and unset
		engine = newStaticEngine(opts...)
	}
	if err != nil {
		return nil, err
	}
	return withRetry(engine), nil
}

// Option configures an Engine at construction time.
type Option func(*engineConfig)

type engineConfig struct {
	userAgent string
	proxyURL  string
}

// WithUserAgent overrides the default User-Agent header/flag.
func WithUserAgent(ua string) Option {
	return func(c *engineConfig) { c.userAgent = ua }
}

// WithProxyURL routes requests through the given proxy.
func WithProxyURL(proxyURL string) Option {
	return func(c *engineConfig) { c.proxyURL = proxyURL }
}

func newEngineConfig(opts ...Option) engineConfig {
	c := engineConfig{
		userAgent: "Mozilla/5.0 (compatible; cardwatch/1.0)",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
