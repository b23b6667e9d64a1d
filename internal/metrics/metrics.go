// Package metrics defines Prometheus metrics for cardwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cardwatch"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Health metrics.
var (
	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "Health check status (1 = ok, 0 = failing).",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "Readiness check status (1 = ready, 0 = not ready).",
	})
)

// Cycle metrics. One cycle runs one scheduler tick across every shop due at that tier.
var (
	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a scheduler cycle in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tier"})

	CycleErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycle_errors_total",
		Help:      "Total number of cycle-level errors (lock acquisition, preload failures).",
	}, []string{"tier"})

	CycleSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycle_skipped_total",
		Help:      "Cycles skipped because a prior run's advisory lock was still held.",
	}, []string{"tier"})
)

// Shop scraping metrics.
var (
	ScrapeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Duration of a single shop/product scrape in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"shop", "engine"})

	ScrapeResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_results_total",
		Help:      "Total scrape attempts by outcome.",
	}, []string{"shop", "outcome"}) // outcome: ok, not_found, extract_error, timeout

	SelectorFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selector_fallbacks_total",
		Help:      "Total times a selector had to fall back past its first candidate value.",
	}, []string{"shop"})

	PriceParseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_parse_failures_total",
		Help:      "Total price strings that failed to parse for a shop.",
	}, []string{"shop"})
)

// Governor metrics.
var (
	GovernorWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "governor_wait_duration_seconds",
		Help:      "Time spent waiting on a shop's concurrency semaphore or rate limiter.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"shop"})

	GovernorInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "governor_in_flight",
		Help:      "Number of in-flight requests currently admitted per shop.",
	}, []string{"shop"})

	GovernorRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "governor_rate_limited_total",
		Help:      "Total requests delayed by the per-shop token bucket.",
	}, []string{"shop"})
)

// Notification-state metrics.
var (
	NotificationsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_triggered_total",
		Help:      "Total times shouldNotify evaluated true, broken down by trigger reason.",
	}, []string{"reason"}) // reason: first_seen, restock, price_drop

	NotificationsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_suppressed_total",
		Help:      "Total times a notify-eligible result was suppressed by hysteresis (equal price, already notified).",
	}, []string{"reason"})
)

// Delivery/dispatch metrics.
var (
	DeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_duration_seconds",
		Help:      "Latency of a single channel delivery attempt in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"channel"})

	DeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_failures_total",
		Help:      "Total delivery failures by channel.",
	}, []string{"channel"})

	DeliveryLastSuccessTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delivery_last_success_timestamp",
		Help:      "Unix epoch of the last successful delivery, by channel.",
	}, []string{"channel"})

	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Pending notifications awaiting flush in the current batching window.",
	})
)

// System state metrics.
var (
	ShopsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "shops_total",
		Help:      "Total number of configured shops.",
	})

	ShopsEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "shops_enabled",
		Help:      "Number of enabled shops.",
	})

	WatchesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watches_total",
		Help:      "Total number of user watch entries.",
	})

	ResultsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_stored_total",
		Help:      "Total product results written to the store.",
	})
)

// Scheduler metrics.
var (
	SchedulerNextRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_run_timestamp",
		Help:      "Unix epoch of the next scheduled run, by tier.",
	}, []string{"tier"})

	SchedulerLastSuccessTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_last_success_timestamp",
		Help:      "Unix epoch of the last successful cycle; the tier label is always \"all\".",
	}, []string{"tier"})

	SchedulerStaleRunsRecoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_stale_runs_recovered_total",
		Help:      "Total stale job_run rows recovered at startup.",
	})
)
