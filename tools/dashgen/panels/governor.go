package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// GovernorWaitDuration returns a timeseries panel showing p95 time spent
// waiting on a per-shop governor token.
func GovernorWaitDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Governor Wait (p95)").
		Description("95th percentile time a fetch waited for a governor token, by shop").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(cardwatch_governor_wait_duration_seconds_bucket{job="cardwatch"}[5m])) by (le, shop))`,
			"{{shop}}",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GovernorInFlight returns a timeseries panel showing in-flight fetches per
// shop against its configured concurrency ceiling.
func GovernorInFlight() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("In-Flight Fetches").
		Description("Concurrent fetches currently holding a governor token, by shop").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`cardwatch_governor_in_flight{job="cardwatch"}`, "{{shop}}", "A")).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GovernorRateLimited returns a stat panel showing rate-limit backoffs
// triggered in the past 24 hours.
func GovernorRateLimited() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Rate Limited (24h)").
		Description("Times a shop's governor backed off after a rate-limit signal, in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`increase(cardwatch_governor_rate_limited_total{job="cardwatch"}[24h])`,
			"{{shop}}", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
