// Package scraper implements the per-(shop, product) search-then-verify
// algorithm that turns a ShopConfig and a ResolvedProduct into a
// ProductResult, driving an internal/shopengine.Engine through the
// selectors and match policy a shop's configuration describes.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cardwatch/cardwatch/internal/metrics"
	"github.com/cardwatch/cardwatch/internal/shopengine"
	"github.com/cardwatch/cardwatch/pkg/price"
	"github.com/cardwatch/cardwatch/pkg/selector"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Scraper runs the search-and-verify algorithm against one shop using an
// already-constructed Engine. Callers (the governor) own the Engine's
// lifecycle and any concurrency/rate gating around Scrape.
type Scraper struct {
	engine shopengine.Engine
	log    *slog.Logger
}

// New builds a Scraper driving engine. log may be nil, in which case
// slog.Default() is used.
func New(engine shopengine.Engine, log *slog.Logger) *Scraper {
	if log == nil {
		log = slog.Default()
	}
	return &Scraper{engine: engine, log: log}
}

// candidate is one search-result article resolved from the search page.
type candidate struct {
	element    selector.Element
	title      string
	productURL string
}

// Scrape runs the full search → match → verify algorithm for one
// (shop, product) pair and always returns a ProductResult — irrecoverable
// errors are logged and surfaced as an unavailable result rather than
// propagated, so one bad shop/product pairing never aborts a cycle.
func (s *Scraper) Scrape(
	ctx context.Context,
	shop domain.ShopConfig,
	product domain.ResolvedProduct,
	catalog domain.SeriesCatalog,
) domain.ProductResult {
	start := time.Now()
	result, outcome := s.scrape(ctx, shop, product, catalog)
	metrics.ScrapeDuration.WithLabelValues(shop.ID, string(shop.Engine)).Observe(time.Since(start).Seconds())
	metrics.ScrapeResultsTotal.WithLabelValues(shop.ID, outcome).Inc()
	return result
}

func (s *Scraper) scrape(
	ctx context.Context,
	shop domain.ShopConfig,
	product domain.ResolvedProduct,
	catalog domain.SeriesCatalog,
) (domain.ProductResult, string) {
	now := time.Now()
	fail := func() domain.ProductResult {
		return domain.ProductResult{
			ProductID:   product.ID,
			ShopID:      shop.ID,
			HourBucket:  domain.HourBucket(now),
			IsAvailable: false,
			Price:       nil,
			Timestamp:   now,
		}
	}

	if len(product.ResolvedSearch.Phrases) == 0 {
		s.log.Warn("scraper: product has no resolved search phrases", "product", product.ID, "shop", shop.ID)
		return fail(), "extract_error"
	}

	searchURL := buildSearchURL(shop.SearchURL, product.ResolvedSearch.Phrases[0])
	if err := s.engine.Goto(ctx, searchURL); err != nil {
		s.log.Error("scraper: navigating to search page", "shop", shop.ID, "product", product.ID, "url", searchURL, "error", err)
		return fail(), "timeout"
	}

	if directHit, ok := s.tryDirectHit(ctx, shop, product, catalog); ok {
		result, outcome := s.verifyProductPage(ctx, shop, product, directHit)
		result.ProductID, result.ShopID, result.HourBucket = product.ID, shop.ID, domain.HourBucket(now)
		result.Timestamp = now
		return result, outcome
	}

	matched, ok := s.findMatch(ctx, shop, product, catalog)
	if !ok {
		return fail(), "not_found"
	}

	matchAvailable := resolveCandidateAvailability(matched.element, shop.SearchPage.Available, shop.SearchPage.Unavailable)
	if shop.SearchPage.Price != nil && matchAvailable && shop.SkipProductPageWhenPriceOnSearchPage {
		result := domain.ProductResult{
			ProductID:   product.ID,
			ShopID:      shop.ID,
			HourBucket:  domain.HourBucket(now),
			ProductURL:  matched.productURL,
			IsAvailable: true,
			Timestamp:   now,
		}
		if rawPrice, ok := s.resolveSelector(ctx, shop.ID, *shop.SearchPage.Price); ok {
			parsed, perr := price.Parse(rawPrice, shop.SearchPage.Price.Format)
			if perr != nil {
				metrics.PriceParseFailuresTotal.WithLabelValues(shop.ID).Inc()
				s.log.Warn("scraper: parsing search-page price", "shop", shop.ID, "product", product.ID, "raw", rawPrice, "error", perr)
			} else {
				result.Price = &parsed
			}
		}
		return result, "ok"
	}

	if err := s.engine.Goto(ctx, matched.productURL); err != nil {
		s.log.Error("scraper: navigating to product page", "shop", shop.ID, "product", product.ID, "url", matched.productURL, "error", err)
		return fail(), "timeout"
	}

	result, outcome := s.verifyProductPage(ctx, shop, product, matched.productURL)
	result.ProductID, result.ShopID, result.HourBucket = product.ID, shop.ID, domain.HourBucket(now)
	result.Timestamp = now
	return result, outcome
}

// tryDirectHit reports whether shop.DirectHitPattern matches the URL the
// engine landed on after the search navigation, treating that page as the
// product page directly when the (optional) product-page title still
// validates against the product's search phrases.
func (s *Scraper) tryDirectHit(
	ctx context.Context,
	shop domain.ShopConfig,
	product domain.ResolvedProduct,
	catalog domain.SeriesCatalog,
) (string, bool) {
	if shop.DirectHitPattern == "" {
		return "", false
	}
	re, err := regexp.Compile(shop.DirectHitPattern)
	if err != nil {
		s.log.Warn("scraper: invalid directHitPattern", "shop", shop.ID, "pattern", shop.DirectHitPattern, "error", err)
		return "", false
	}
	currentURL := s.engine.CurrentURL()
	if !re.MatchString(currentURL) {
		return "", false
	}

	if shop.ProductPage.Title != nil {
		title, ok := s.resolveSelector(ctx, shop.ID, *shop.ProductPage.Title)
		if !ok || !matchesSearch(title, product, catalog) {
			return "", false
		}
	}

	return currentURL, true
}

// findMatch collects search-page candidates and returns the first one
// satisfying the match policy, in DOM order.
func (s *Scraper) findMatch(
	ctx context.Context,
	shop domain.ShopConfig,
	product domain.ResolvedProduct,
	catalog domain.SeriesCatalog,
) (candidate, bool) {
	elements := s.engine.ExtractAll(ctx, shop.SearchPage.Article)
	for _, el := range elements {
		title, ok := el.Resolve(shop.SearchPage.Title)
		rawURL, urlOK := el.Resolve(shop.SearchPage.ProductURL)
		if !urlOK {
			continue
		}
		productURL, err := selector.ResolveURL(shop.BaseURL, rawURL)
		if err != nil {
			s.log.Warn("scraper: resolving candidate product URL", "shop", shop.ID, "raw", rawURL, "error", err)
			continue
		}
		if !ok || title == "" {
			title = titleFromSlug(productURL)
		}
		if !matchesSearch(title, product, catalog) {
			continue
		}
		return candidate{element: el, title: title, productURL: productURL}, true
	}
	return candidate{}, false
}

// verifyProductPage resolves availability and price from the current
// document (the engine must already be navigated to productURL).
func (s *Scraper) verifyProductPage(
	ctx context.Context,
	shop domain.ShopConfig,
	product domain.ResolvedProduct,
	productURL string,
) (domain.ProductResult, string) {
	available := s.resolveAvailability(ctx, shop.ProductPage.Available, shop.ProductPage.Unavailable)

	result := domain.ProductResult{
		ProductURL:  productURL,
		IsAvailable: available,
	}

	rawPrice, ok := s.resolveSelector(ctx, shop.ID, shop.ProductPage.Price)
	if !ok {
		return result, "ok"
	}

	parsed, err := price.Parse(rawPrice, shop.ProductPage.Price.Format)
	if err != nil {
		metrics.PriceParseFailuresTotal.WithLabelValues(shop.ID).Inc()
		s.log.Warn("scraper: parsing product-page price", "shop", shop.ID, "product", product.ID, "raw", rawPrice, "error", err)
		return result, "ok"
	}

	result.Price = &parsed
	return result, "ok"
}

// resolveAvailability implements the any-match availability rule: any
// available selector matching wins unless any unavailable selector also
// matches, in which case unavailable wins; no match at all is unavailable.
func (s *Scraper) resolveAvailability(ctx context.Context, available, unavailable []domain.Selector) bool {
	isUnavailable := s.matchAny(ctx, unavailable)
	if isUnavailable {
		return false
	}
	return s.matchAny(ctx, available)
}

func (s *Scraper) matchAny(ctx context.Context, sels []domain.Selector) bool {
	for _, sel := range sels {
		if _, ok := s.engine.Extract(ctx, sel); ok {
			return true
		}
	}
	return false
}

// resolveCandidateAvailability is resolveAvailability's candidate-scoped
// equivalent, used when a result is emitted directly from the search page.
func resolveCandidateAvailability(el selector.Element, available, unavailable []domain.Selector) bool {
	if selector.MatchAny(el, unavailable) {
		return false
	}
	return selector.MatchAny(el, available)
}

// resolveSelector walks sel's fallback values one at a time through the
// engine so a match past the first fallback can be counted.
func (s *Scraper) resolveSelector(ctx context.Context, shopID string, sel domain.Selector) (string, bool) {
	for i, v := range sel.Value {
		attempt := sel
		attempt.Value = []string{v}
		if val, ok := s.engine.Extract(ctx, attempt); ok {
			if i > 0 {
				metrics.SelectorFallbacksTotal.WithLabelValues(shopID).Inc()
			}
			return val, true
		}
	}
	return "", false
}

// buildSearchURL substitutes the URL-encoded query into template's {query}
// slot, or appends it when the template has no such slot.
func buildSearchURL(template, query string) string {
	encoded := url.QueryEscape(query)
	if strings.Contains(template, "{query}") {
		return strings.ReplaceAll(template, "{query}", encoded)
	}
	return fmt.Sprintf("%s%s", template, encoded)
}
