package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// NotificationsTriggeredRate returns a timeseries panel showing notification
// triggers per minute, broken down by trigger reason.
func NotificationsTriggeredRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Notifications Triggered / min").
		Description("Rate of notify-eligible results, by trigger reason (first_seen, restock, price_drop)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(cardwatch_notifications_triggered_total{job="cardwatch"}[5m])) by (reason) * 60`,
			"{{reason}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// NotificationsSuppressedRate returns a timeseries panel showing hysteresis
// suppressions per minute.
func NotificationsSuppressedRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Notifications Suppressed / min").
		Description("Rate of results suppressed by hysteresis instead of notified").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(cardwatch_notifications_suppressed_total{job="cardwatch"}[5m])) by (reason) * 60`,
			"{{reason}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// DeliveryDuration returns a timeseries panel showing p95 channel delivery
// latency, by channel.
func DeliveryDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Delivery Duration (p95)").
		Description("95th percentile delivery latency, by channel").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(cardwatch_delivery_duration_seconds_bucket{job="cardwatch"}[5m])) by (le, channel))`,
			"{{channel}}",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// DeliveryFailures returns a stat panel showing delivery failures per
// channel in the past 24 hours.
func DeliveryFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Delivery Failures (24h)").
		Description("Failed channel deliveries in the last 24 hours, by channel").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`increase(cardwatch_delivery_failures_total{job="cardwatch"}[24h])`,
			"{{channel}}", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// DispatchQueueDepth returns a stat panel showing pending notifications
// awaiting the current batching window's flush.
func DispatchQueueDepth() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Dispatch Queue Depth").
		Description("Notifications queued for the current batching window").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`cardwatch_dispatch_queue_depth{job="cardwatch"}`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(100, 500)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
