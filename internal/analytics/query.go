package analytics

import (
	"sort"
	"strings"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
)

// MetricFields are the metric columns of a report row, in offset order.
var MetricFields = [project.MetricCount]string{
	"cpi",
	"installs",
	"ipm",
	"spend",
	"retentionRateD1",
	"roasD1",
	"retentionRateD7",
	"roasD7",
	"eArpuForecast",
	"eRoasForecast",
	"eProfitForecast",
	"eRoasForecastD730",
}

// BuildQuery returns the report query for cfg. Columns come back in the
// order the project's field offsets expect: date, grouping descriptor, app,
// the twelve metrics, then any extra ROAS horizons by offset.
func BuildQuery(cfg project.Config) string {
	grouping := "campaign { campaignName campaignId status type isAutomated }"
	if cfg.Shape == models.ShapeNetwork {
		grouping = "network { name: networkName id: networkId }"
	}

	columns := []string{
		"week { value }",
		grouping,
		"app { id name platform bundleId }",
	}
	for _, f := range MetricFields {
		columns = append(columns, f+" { value }")
	}

	type extra struct {
		offset int
		field  string
	}
	var extras []extra
	for _, e := range []extra{
		{cfg.Offsets.RoasD3, "roasD3"},
		{cfg.Offsets.RoasD14, "roasD14"},
		{cfg.Offsets.RoasD30, "roasD30"},
	} {
		if e.offset > 0 {
			extras = append(extras, e)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].offset < extras[j].offset })
	for _, e := range extras {
		columns = append(columns, e.field+" { value }")
	}

	var b strings.Builder
	b.WriteString("query Report($project: String!, $from: Date!, $to: Date!) {\n")
	b.WriteString("  report(project: $project, from: $from, to: $to, granularity: WEEK, filter: { spend: { gt: 0 } }) {\n")
	b.WriteString("    rows {\n")
	for _, c := range columns {
		b.WriteString("      ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	b.WriteString("    }\n  }\n}\n")
	return b.String()
}
