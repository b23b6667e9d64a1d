// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/cardwatch/cardwatch/tools/dashgen/panels"
)

// BuildOverview constructs the cardwatch Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Cardwatch Overview").
		Uid("cardwatch-overview").
		Tags([]string{"cardwatch"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.UptimeStat()).
		WithPanel(panels.SchedulerLastSuccessStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: Cycle.
	b.WithRow(dashboard.NewRowBuilder("Cycle").
		WithPanel(panels.NextCycle()).
		WithPanel(panels.ShopsEnabled()).
		WithPanel(panels.ResultsStoredRate()).
		WithPanel(panels.CycleErrors()).
		WithPanel(panels.CycleDuration()))

	// Row 4: Governor.
	b.WithRow(dashboard.NewRowBuilder("Governor").
		WithPanel(panels.GovernorWaitDuration()).
		WithPanel(panels.GovernorInFlight()).
		WithPanel(panels.GovernorRateLimited()))

	// Row 5: Dispatch.
	b.WithRow(dashboard.NewRowBuilder("Dispatch").
		WithPanel(panels.NotificationsTriggeredRate()).
		WithPanel(panels.NotificationsSuppressedRate()).
		WithPanel(panels.DeliveryDuration()).
		WithPanel(panels.DeliveryFailures()).
		WithPanel(panels.DispatchQueueDepth()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
