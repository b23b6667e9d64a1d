package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// cardwatch operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cardwatch-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cardwatch-alerts",
					Rules: []Rule{
						{
							Alert: "CardwatchDown",
							Expr:  `absent(up{job="cardwatch"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "cardwatch is down",
								"description": "The cardwatch job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "CardwatchReadinessDown",
							Expr:  `cardwatch_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "cardwatch readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "CardwatchHighErrorRate",
							Expr:  `cardwatch:http_errors:rate5m / cardwatch:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on cardwatch",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "CardwatchCycleStale",
							Expr:  `time() - max(cardwatch_scheduler_last_success_timestamp) > 3600`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "No successful scrape cycle in over an hour",
								"description": "The scheduler has not completed a cycle without error in more than 3600 seconds.",
							},
						},
						{
							Alert: "CardwatchCycleErrors",
							Expr:  `cardwatch:cycle_errors:rate5m > 0`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Cycle errors detected",
								"description": "The scrape cycle has been producing errors for more than 5 minutes.",
							},
						},
						{
							Alert: "CardwatchGovernorRateLimited",
							Expr:  `cardwatch:governor_rate_limited:rate5m > 1`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Shop governor throttling persistently",
								"description": "A shop's governor has been backing off on rate-limit signals for more than 10 minutes; anti-bot pressure may be rising.",
							},
						},
						{
							Alert: "CardwatchDeliveryFailures",
							Expr:  `increase(cardwatch_delivery_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more channel deliveries (Discord or Telegram) have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
