// Package domain defines the core business types for cardwatch.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopEngine selects the navigation/extraction capability a shop requires.
type ShopEngine string

// Shop engine constants.
const (
	EngineStaticHTML      ShopEngine = "static-html"
	EngineHeadlessBrowser ShopEngine = "headless-browser"
)

// FetchingTier is the coarse latency class of a shop, controlling how often
// it is scraped relative to the scheduler's base tick.
type FetchingTier string

// Fetching tier constants.
const (
	TierSuperSlow FetchingTier = "super-slow"
	TierSlow      FetchingTier = "slow"
	TierFast      FetchingTier = "fast"
	TierSuperFast FetchingTier = "super-fast"
)

// TierMultiplier returns how many base ticks must elapse between scrapes of
// a shop in the given tier. super-fast runs every tick.
func TierMultiplier(t FetchingTier) int {
	switch t {
	case TierSuperFast:
		return 1
	case TierFast:
		return 2
	case TierSlow:
		return 4
	case TierSuperSlow:
		return 8
	default:
		return 1
	}
}

// SelectorType tags which extraction strategy a Selector uses.
type SelectorType string

// Selector type constants.
const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	SelectorText  SelectorType = "text"
)

// ExtractMode controls what a matched node yields.
type ExtractMode string

// Extract mode constants.
const (
	ExtractText      ExtractMode = "text"
	ExtractHref      ExtractMode = "href"
	ExtractInnerHTML ExtractMode = "innerHTML"
)

// PriceFormat selects the locale used by the price parser.
type PriceFormat string

// Price format constants.
const (
	FormatEuropean PriceFormat = "european"
	FormatUS       PriceFormat = "us"
)

// Selector describes how to resolve a value from a document, carrying an
// ordered list of fallback query strings under a single tag.
type Selector struct {
	Type      SelectorType `json:"type"`
	Value     []string     `json:"value"` // ordered fallback list; single values are length-1
	Extract   ExtractMode  `json:"extract,omitempty"`
	Format    PriceFormat  `json:"format,omitempty"`
	MatchText string       `json:"matchText,omitempty"`
}

// SearchPageSelectors describes the selectors used on a shop's search/listing page.
type SearchPageSelectors struct {
	Article     Selector   `json:"article"`
	ProductURL  Selector   `json:"productUrl"`
	Title       Selector   `json:"title"`
	Price       *Selector  `json:"price,omitempty"`
	Available   []Selector `json:"available,omitempty"`
	Unavailable []Selector `json:"unavailable,omitempty"`
}

// ProductPageSelectors describes the selectors used on a shop's product page.
type ProductPageSelectors struct {
	Title       *Selector  `json:"title,omitempty"`
	Price       Selector   `json:"price"`
	Available   []Selector `json:"available,omitempty"`
	Unavailable []Selector `json:"unavailable,omitempty"`
}

// AntiBotConfig carries per-shop rate-limiting and evasion settings.
type AntiBotConfig struct {
	RequestDelayMs int  `json:"requestDelayMs,omitempty"`
	MaxConcurrency int  `json:"maxConcurrency,omitempty"`
	UseProxy       bool `json:"useProxy,omitempty"`
}

// ShopConfig is an immutable-per-cycle description of one shop to scrape.
type ShopConfig struct {
	ID           string        `json:"id"           db:"id"`
	Name         string        `json:"name"         db:"name"`
	BaseURL      string        `json:"baseUrl"      db:"base_url"`
	SearchURL    string        `json:"searchUrl"    db:"search_url"` // contains a {query} slot
	Engine       ShopEngine    `json:"engine"       db:"engine"`
	FetchingTier FetchingTier  `json:"fetchingTier" db:"fetching_tier"`
	AntiBot      AntiBotConfig `json:"antiBot"      db:"-"`
	Disabled     bool          `json:"disabled,omitempty" db:"disabled"`

	// DirectHitPattern, if set, is tested against the post-navigation URL;
	// a match means the search endpoint redirected straight to a product page.
	DirectHitPattern string `json:"directHitPattern,omitempty" db:"direct_hit_pattern"`

	// SkipProductPageWhenPriceOnSearchPage resolves the "when can we skip the
	// product-page verification" ambiguity as an explicit per-shop flag.
	SkipProductPageWhenPriceOnSearchPage bool `json:"skipProductPageWhenPriceOnSearchPage,omitempty" db:"skip_product_page"`

	SearchPage  SearchPageSelectors  `json:"searchPage"  db:"-"`
	ProductPage ProductPageSelectors `json:"productPage" db:"-"`
}

// SearchConfig describes the phrases a product must/must-not match on a
// candidate title.
type SearchConfig struct {
	Phrases  []string `json:"phrases"`
	Exclude  []string `json:"exclude,omitempty"`
	Override bool     `json:"override,omitempty"`
}

// PriceBudget bounds the prices a product is considered "interesting" at.
type PriceBudget struct {
	Max decimal.Decimal  `json:"max"`
	Min *decimal.Decimal `json:"min,omitempty"`
}

// Product is a single watchlist catalog entry (not a per-user watch).
type Product struct {
	ID            string        `json:"id"                      db:"id"` // kebab-case of name
	Name          string        `json:"name"                    db:"name"`
	ProductSetID  string        `json:"productSetId,omitempty"  db:"product_set_id"`
	ProductTypeID string        `json:"productTypeId,omitempty" db:"product_type_id"`
	Search        *SearchConfig `json:"search,omitempty" db:"-"`
	Price         *PriceBudget  `json:"price,omitempty"   db:"-"`
	Disabled      bool          `json:"disabled,omitempty" db:"disabled"`
}

// ProductType supplies default search configuration merged into a Product's
// resolved form unless the product opts out via Search.Override.
type ProductType struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Search SearchConfig `json:"search"`
}

// ResolvedProduct is a Product after merging its ProductType defaults,
// guaranteeing a non-empty Search.Phrases list.
type ResolvedProduct struct {
	Product
	ResolvedSearch SearchConfig `json:"resolvedSearch"`
}

// Series groups the ProductSets released under one card series (e.g. a
// generation of expansions), identifying the series by name so sibling sets
// can be compared against it.
type Series struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductSet is a single expansion/set a Product may belong to via
// Product.ProductSetID. A set whose Name equals its Series' Name is the
// "generic" set for that series (e.g. a base expansion sharing its series'
// name) and needs special handling in search matching: candidates clearly
// belonging to other specifically-named sets of the same series must not be
// mistaken for it.
type ProductSet struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SeriesID string `json:"seriesId"`
}

// SeriesCatalog resolves a ProductSetID to its sibling sets within the same
// series, used to derive the generic-set-protection excludes for a
// ResolvedProduct's search.
type SeriesCatalog struct {
	Sets   map[string]ProductSet // by ProductSet.ID
	Series map[string]Series     // by Series.ID
}

// GenericSetExcludes returns, when productSetID names its series' generic
// set (its name equals the series name), the names of the other sets in
// that series — the generic-set-protection terms that keep the generic
// set's search from matching candidates of a specifically-named sibling
// set. A specifically-named set gets no excludes.
func (c SeriesCatalog) GenericSetExcludes(productSetID string) []string {
	set, ok := c.Sets[productSetID]
	if !ok {
		return nil
	}
	series, ok := c.Series[set.SeriesID]
	if !ok || set.Name != series.Name {
		return nil
	}

	var excludes []string
	for _, sibling := range c.Sets {
		if sibling.ID == set.ID || sibling.SeriesID != set.SeriesID || sibling.Name == series.Name {
			continue
		}
		excludes = append(excludes, sibling.Name)
	}
	return excludes
}

// ResolveProduct merges a Product with its ProductType (when present and not
// overridden) producing a ResolvedProduct with non-empty search phrases.
func ResolveProduct(p Product, pt *ProductType) ResolvedProduct {
	resolved := SearchConfig{}
	if p.Search != nil {
		resolved = *p.Search
	}

	if pt != nil && !resolved.Override {
		if len(resolved.Phrases) == 0 {
			resolved.Phrases = pt.Search.Phrases
		}
		resolved.Exclude = append(append([]string{}, pt.Search.Exclude...), resolved.Exclude...)
	}

	return ResolvedProduct{Product: p, ResolvedSearch: resolved}
}

// UserWatchEntry is a single user's subscription to a product at a price ceiling.
type UserWatchEntry struct {
	UserID    string          `json:"userId"    db:"user_id"`
	ProductID string          `json:"productId" db:"product_id"`
	MaxPrice  decimal.Decimal `json:"maxPrice"  db:"max_price"`
	IsActive  bool            `json:"isActive"  db:"is_active"`
}

// Channel identifies a chat transport a notification target is reachable on.
type Channel string

// Channel constants.
const (
	ChannelTelegram Channel = "telegram"
	ChannelDiscord  Channel = "discord"
)

// NotificationTarget is one (channel, channelTarget) pair a user has linked.
// ChannelTarget is the single logical attribute resolving the two historical
// spellings ("telegramChatId" / "telegram.channelId") into one field.
type NotificationTarget struct {
	UserID        string  `json:"userId"        db:"user_id"`
	Channel       Channel `json:"channel"       db:"channel"`
	ChannelTarget string  `json:"channelTarget" db:"channel_target"`
}

// ProductResult is one (product, shop) observation, keyed uniquely by
// (ProductID, ShopID, HourBucket) — later observations in the same hour
// overwrite earlier ones.
type ProductResult struct {
	ProductID   string           `json:"productId"   db:"product_id"`
	ShopID      string           `json:"shopId"      db:"shop_id"`
	HourBucket  string           `json:"hourBucket"  db:"hour_bucket"` // "YYYY-MM-DDTHH"
	ProductURL  string           `json:"productUrl"  db:"product_url"`
	Price       *decimal.Decimal `json:"price"       db:"price"`
	IsAvailable bool             `json:"isAvailable" db:"is_available"`
	Timestamp   time.Time        `json:"timestamp"   db:"timestamp"`
	CreatedAt   time.Time        `json:"createdAt"   db:"created_at"`
}

// HourBucket truncates t to the UTC hour and formats it per the
// result-uniqueness key convention.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}

// NotificationState is the per-(user,product,shop) hysteresis tuple used to
// decide whether a new observation should trigger a notification.
type NotificationState struct {
	UserID       string           `json:"userId"       db:"user_id"`
	ProductID    string           `json:"productId"    db:"product_id"`
	ShopID       string           `json:"shopId"       db:"shop_id"`
	LastNotified *time.Time       `json:"lastNotified" db:"last_notified"`
	LastPrice    *decimal.Decimal `json:"lastPrice"    db:"last_price"`
	WasAvailable bool             `json:"wasAvailable" db:"was_available"`
}

// StateKey returns the composite key "{userId}:{productId}:{shopId}".
func (s NotificationState) StateKey() string {
	return s.UserID + ":" + s.ProductID + ":" + s.ShopID
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

// Delivery status constants.
const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// NotificationStatus is the overall lifecycle state of a Notification.
type NotificationStatus string

// Notification status constants.
const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Delivery records one channel's attempt to deliver a Notification.
type Delivery struct {
	Channel       Channel        `json:"channel"`
	ChannelTarget string         `json:"channelTarget"`
	Status        DeliveryStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	Error         string         `json:"error,omitempty"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
}

// NotificationPayload is the rendered content handed to a Channel Adapter.
type NotificationPayload struct {
	ProductName string          `json:"productName"`
	ProductID   string          `json:"productId"`
	ShopName    string          `json:"shopName"`
	ShopID      string          `json:"shopId"`
	Price       decimal.Decimal `json:"price"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
	ProductURL  string          `json:"productUrl"`
}

// Notification is an append-only audit record of one dispatch attempt to a
// single user. Records do not expire on their own; rows are removed only by
// an explicit store SweepExpiredNotifications call, which no component makes.
type Notification struct {
	ID         string              `json:"id"         db:"id"`
	UserID     string              `json:"userId"     db:"user_id"`
	Status     NotificationStatus  `json:"status"     db:"status"`
	Payload    NotificationPayload `json:"payload"    db:"payload"`
	Deliveries []Delivery          `json:"deliveries" db:"deliveries"`
	CreatedAt  time.Time           `json:"createdAt"  db:"created_at"`
}

// JobRun records a single execution of a scheduled cycle.
type JobRun struct {
	ID                string     `json:"id"                    db:"id"`
	JobName           string     `json:"jobName"               db:"job_name"`
	StartedAt         time.Time  `json:"startedAt"             db:"started_at"`
	CompletedAt       *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	Status            string     `json:"status"                db:"status"` // running, succeeded, failed, crashed
	ErrorText         string     `json:"errorText,omitempty"   db:"error_text"`
	ShopsProcessed    int        `json:"shopsProcessed"        db:"shops_processed"`
	ProductsScraped   int        `json:"productsScraped"       db:"products_scraped"`
	NotificationsSent int        `json:"notificationsSent"     db:"notifications_sent"`
}

// SystemState holds a precomputed snapshot of aggregate system metrics for
// the operational health surface.
type SystemState struct {
	ShopsTotal           int       `json:"shopsTotal"           db:"shops_total"`
	ShopsEnabled         int       `json:"shopsEnabled"         db:"shops_enabled"`
	ProductsTotal        int       `json:"productsTotal"        db:"products_total"`
	ProductsActive       int       `json:"productsActive"       db:"products_active"`
	PendingNotifications int       `json:"pendingNotifications" db:"pending_notifications"`
	ResultRowsTotal      int       `json:"resultRowsTotal"      db:"result_rows_total"`
	LastCycleAt          time.Time `json:"lastCycleAt"          db:"last_cycle_at"`
}
