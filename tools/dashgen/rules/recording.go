package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cardwatch-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cardwatch-recording",
					Rules: []Rule{
						{
							Record: "cardwatch:http_requests:rate5m",
							Expr:   `sum(rate(cardwatch_http_requests_total[5m]))`,
						},
						{
							Record: "cardwatch:http_errors:rate5m",
							Expr:   `sum(rate(cardwatch_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "cardwatch:cycle_errors:rate5m",
							Expr:   `sum(rate(cardwatch_cycle_errors_total[5m]))`,
						},
						{
							Record: "cardwatch:governor_rate_limited:rate5m",
							Expr:   `sum(rate(cardwatch_governor_rate_limited_total[5m])) by (shop)`,
						},
						{
							Record: "cardwatch:delivery_failures:rate5m",
							Expr:   `sum(rate(cardwatch_delivery_failures_total[5m])) by (channel)`,
						},
					},
				},
			},
		},
	}
}
