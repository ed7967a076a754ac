package models

import "time"

// Rollup is an aggregate over a set of campaign records. It is never persisted.
type Rollup struct {
	Campaigns int `json:"campaigns"`

	TotalSpend    float64 `json:"total_spend"`
	TotalInstalls float64 `json:"total_installs"`
	TotalProfit   float64 `json:"total_profit"`
	AvgCPI        float64 `json:"avg_cpi"`

	// Simple unweighted means
	AvgRoasD1  float64 `json:"avg_roas_d1"`
	AvgRoasD3  float64 `json:"avg_roas_d3"`
	AvgRoasD7  float64 `json:"avg_roas_d7"`
	AvgRoasD14 float64 `json:"avg_roas_d14"`
	AvgRoasD30 float64 `json:"avg_roas_d30"`
	AvgIPM     float64 `json:"avg_ipm"`
	AvgRrD1    float64 `json:"avg_rr_d1"`
	AvgRrD7    float64 `json:"avg_rr_d7"`
	AvgArpu    float64 `json:"avg_arpu"`

	// Spend-weighted over campaigns inside the forecast bounds
	AvgERoas     float64 `json:"avg_eroas"`
	AvgEROASD730 float64 `json:"avg_eroas_d730"`
}

// GrowthStatus is the categorical label of one entity's week-over-week
// trajectory. The strings are load-bearing for downstream formatting.
type GrowthStatus string

const (
	StatusFirstWeek              GrowthStatus = "First Week"
	StatusHealthyGrowth          GrowthStatus = "🟢 Healthy Growth"
	StatusInefficientGrowth      GrowthStatus = "🔴 Inefficient Growth"
	StatusEfficiencyImprovement  GrowthStatus = "🟢 Efficiency Improvement"
	StatusScalingDown            GrowthStatus = "🔵 Scaling Down"
	StatusScalingDownEfficient   GrowthStatus = "🔵 Scaling Down - Efficient"
	StatusScalingDownModerate    GrowthStatus = "🔵 Scaling Down - Moderate"
	StatusScalingDownProblematic GrowthStatus = "🔵 Scaling Down - Problematic"
	StatusStable                 GrowthStatus = "⚪ Stable"
)

// AllGrowthStatuses lists every label in display order.
var AllGrowthStatuses = []GrowthStatus{
	StatusFirstWeek,
	StatusHealthyGrowth,
	StatusInefficientGrowth,
	StatusEfficiencyImprovement,
	StatusScalingDown,
	StatusScalingDownEfficient,
	StatusScalingDownModerate,
	StatusScalingDownProblematic,
	StatusStable,
}

// WoWResult is the week-over-week comparison of one entity week.
type WoWResult struct {
	SpendChangePercent   float64      `json:"spend_change_percent"`
	EProfitChangePercent float64      `json:"eprofit_change_percent"`
	GrowthStatus         GrowthStatus `json:"growth_status"`
}

// InitialKey identifies one initial-value record. WeekRange is the literal
// "<weekStart> - <weekEnd>" string.
type InitialKey struct {
	Level      Level  `json:"level"`
	AppName    string `json:"app_name"`
	WeekRange  string `json:"week_range"`
	Identifier string `json:"identifier"`
	SourceApp  string `json:"source_app"`
}

// InitialValueRecord is the first observed closed-week value of an entity week.
type InitialValueRecord struct {
	InitialKey
	InitialEROAS  *float64  `json:"initial_eroas"`
	InitialProfit *float64  `json:"initial_profit"`
	DateRecorded  time.Time `json:"date_recorded"`
}

// InitialMetric selects one of the two tracked metrics.
type InitialMetric string

const (
	MetricEROAS  InitialMetric = "eroas"
	MetricProfit InitialMetric = "profit"
)

// Value returns the stored value for the metric, or nil.
func (r InitialValueRecord) Value(m InitialMetric) *float64 {
	if m == MetricProfit {
		return r.InitialProfit
	}
	return r.InitialEROAS
}
