package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// NextCycle returns a stat panel showing time until the next scheduled cycle.
func NextCycle() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Next Cycle").
		Description("Time until the next scheduled cycle, per fetching tier").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`cardwatch_scheduler_next_run_timestamp{job="cardwatch"} - time()`,
			"{{tier}}", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

// ShopsEnabled returns a stat panel showing the enabled-vs-total shop count.
func ShopsEnabled() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Shops Enabled").
		Description("Enabled shops out of the full catalog").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`cardwatch_shops_enabled{job="cardwatch"}`, "enabled", "A")).
		WithTarget(PromQuery(`cardwatch_shops_total{job="cardwatch"}`, "total", "B")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeNone)
}

// ResultsStoredRate returns a timeseries panel showing hourly product
// results written per minute.
func ResultsStoredRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Results Stored / min").
		Description("Rate of hourly product results persisted per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`rate(cardwatch_results_stored_total{job="cardwatch"}[5m]) * 60`,
			"results/min", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CycleErrors returns a timeseries panel showing cycle errors per minute.
func CycleErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cycle Errors / min").
		Description("Rate of failed cycles per minute, by shop").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`cardwatch:cycle_errors:rate5m * 60`, "errors/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CycleDuration returns a timeseries panel showing the p95 cycle duration.
func CycleDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cycle Duration (p95)").
		Description("95th percentile full-cycle duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(cardwatch_cycle_duration_seconds_bucket{job="cardwatch"}[5m])) by (le))`,
			"p95",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
