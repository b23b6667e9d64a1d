package shopengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/cardwatch/cardwatch/pkg/selector"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// headlessEngine renders pages in a real Chrome instance, for shops whose
// price/availability only appears after client-side JavaScript runs.
type headlessEngine struct {
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	browserCtx    context.Context
	currentURL    string
	doc           *selector.Document
}

func newHeadlessEngine(opts ...Option) (*headlessEngine, error) {
	cfg := newEngineConfig(opts...)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.userAgent),
	)
	if cfg.proxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(cfg.proxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("shopengine: starting headless browser: %w", err)
	}

	return &headlessEngine{
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		browserCtx:    browserCtx,
	}, nil
}

// Goto navigates a fresh tab to target. The supplied ctx is not threaded
// into the tab context; navigation is bounded by NavigationTimeout
// regardless, matching how the governor already bounds the caller's wait.
func (e *headlessEngine) Goto(_ context.Context, target string) error {
	tabCtx, tabCancel := chromedp.NewContext(e.browserCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, NavigationTimeout)
	defer timeoutCancel()

	var html string
	err := chromedp.Run(tabCtx,
		blockResourcesAction(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			loc, err := page.GetNavigationHistory().Do(actionCtx)
			if err != nil {
				return nil // non-fatal: CurrentURL falls back to the requested target
			}
			if loc != nil && int(loc.CurrentIndex) < len(loc.Entries) {
				e.currentURL = loc.Entries[loc.CurrentIndex].URL
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("shopengine: navigating to %q: %w", target, err)
	}

	doc, err := selector.ParseHTML(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("shopengine: parsing rendered DOM for %q: %w", target, err)
	}
	e.doc = doc
	if e.currentURL == "" {
		e.currentURL = target
	}
	return nil
}

func blockResourcesAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return network.SetBlockedURLS(blockedURLPatterns).Do(ctx)
	})
}

// blockedURLPatterns disables image/font/stylesheet fetches on every
// navigation; none of them carry the title/price/availability signals the
// scraper needs, and skipping them cuts page weight and load time.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf",
	"*.css",
}

func (e *headlessEngine) Extract(_ context.Context, sel domain.Selector) (string, bool) {
	if e.doc == nil {
		return "", false
	}
	return e.doc.Resolve(sel)
}

func (e *headlessEngine) ExtractAll(_ context.Context, sel domain.Selector) []selector.Element {
	if e.doc == nil {
		return nil
	}
	return e.doc.FindAll(sel)
}

func (e *headlessEngine) Exists(ctx context.Context, sel domain.Selector) bool {
	_, ok := e.Extract(ctx, sel)
	return ok
}

func (e *headlessEngine) CurrentURL() string {
	return e.currentURL
}

func (e *headlessEngine) Close() error {
	e.browserCancel()
	e.allocCancel()
	return nil
}
