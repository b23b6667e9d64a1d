package main

import "errors"

// KnownMetrics is the set of metric names exported by cardwatch plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"cardwatch_http_request_duration_seconds": true,
	"cardwatch_http_requests_total":           true,

	// Health metrics.
	"cardwatch_healthz_up": true,
	"cardwatch_readyz_up":  true,

	// Cycle metrics.
	"cardwatch_cycle_duration_seconds":             true,
	"cardwatch_cycle_errors_total":                 true,
	"cardwatch_cycle_skipped_total":                true,
	"cardwatch_scheduler_next_run_timestamp":       true,
	"cardwatch_scheduler_last_success_timestamp":   true,
	"cardwatch_scheduler_stale_runs_recovered_total": true,
	"cardwatch_shops_total":                        true,
	"cardwatch_shops_enabled":                      true,
	"cardwatch_results_stored_total":               true,

	// Scraper metrics.
	"cardwatch_scrape_duration_seconds":     true,
	"cardwatch_scrape_results_total":        true,
	"cardwatch_selector_fallbacks_total":    true,
	"cardwatch_price_parse_failures_total":  true,

	// Governor (anti-bot / concurrency) metrics.
	"cardwatch_governor_wait_duration_seconds": true,
	"cardwatch_governor_in_flight":             true,
	"cardwatch_governor_rate_limited_total":    true,

	// Dispatch / notification metrics.
	"cardwatch_notifications_triggered_total":  true,
	"cardwatch_notifications_suppressed_total": true,
	"cardwatch_delivery_duration_seconds":      true,
	"cardwatch_delivery_failures_total":        true,
	"cardwatch_delivery_last_success_timestamp": true,
	"cardwatch_dispatch_queue_depth":           true,
	"cardwatch_watches_total":                  true,

	// Recording rules.
	"cardwatch:http_requests:rate5m":        true,
	"cardwatch:http_errors:rate5m":          true,
	"cardwatch:cycle_errors:rate5m":         true,
	"cardwatch:governor_rate_limited:rate5m": true,
	"cardwatch:delivery_failures:rate5m":    true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
