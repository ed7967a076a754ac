// Package rollup computes aggregates over sets of campaign records.
package rollup

import (
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
)

// Calculator computes rollups with one project's forecast bounds.
type Calculator struct {
	bounds project.ForecastBounds
}

// New returns a calculator filtering long-horizon forecasts by bounds.
func New(bounds project.ForecastBounds) Calculator {
	return Calculator{bounds: bounds}
}

// CalculateWeekTotals is WeekTotals with the default forecast bounds.
func CalculateWeekTotals(campaigns []models.CampaignRecord) models.Rollup {
	return New(project.DefaultForecastBounds).WeekTotals(campaigns)
}

// WeekTotals aggregates campaigns. Totals are sums and CPI is derived from
// them; short-horizon metrics are simple means; eROAS forecasts are
// spend-weighted over the campaigns whose value is inside the bounds.
func (c Calculator) WeekTotals(campaigns []models.CampaignRecord) models.Rollup {
	r := models.Rollup{Campaigns: len(campaigns)}
	if len(campaigns) == 0 {
		return r
	}

	var (
		roasD1, roasD3, roasD7, roasD14, roasD30 float64
		ipm, rrD1, rrD7, arpu                    float64
		eroas, eroasSpend                        float64
		eroas730, eroas730Spend                  float64
	)
	for _, rec := range campaigns {
		r.TotalSpend += rec.Spend
		r.TotalInstalls += rec.Installs
		r.TotalProfit += rec.EProfitForecast

		roasD1 += rec.RoasD1
		roasD3 += rec.RoasD3
		roasD7 += rec.RoasD7
		roasD14 += rec.RoasD14
		roasD30 += rec.RoasD30
		ipm += rec.IPM
		rrD1 += rec.RrD1
		rrD7 += rec.RrD7
		arpu += rec.EArpuForecast

		if rec.Spend > 0 && c.bounds.Contains(rec.ERoasForecast) {
			eroas += rec.ERoasForecast * rec.Spend
			eroasSpend += rec.Spend
		}
		if rec.Spend > 0 && c.bounds.Contains(rec.ERoasForecastD730) {
			eroas730 += rec.ERoasForecastD730 * rec.Spend
			eroas730Spend += rec.Spend
		}
	}

	if r.TotalInstalls > 0 {
		r.AvgCPI = r.TotalSpend / r.TotalInstalls
	}
	n := float64(len(campaigns))
	r.AvgRoasD1 = roasD1 / n
	r.AvgRoasD3 = roasD3 / n
	r.AvgRoasD7 = roasD7 / n
	r.AvgRoasD14 = roasD14 / n
	r.AvgRoasD30 = roasD30 / n
	r.AvgIPM = ipm / n
	r.AvgRrD1 = rrD1 / n
	r.AvgRrD7 = rrD7 / n
	r.AvgArpu = arpu / n

	if eroasSpend > 0 {
		r.AvgERoas = eroas / eroasSpend
	}
	if eroas730Spend > 0 {
		r.AvgEROASD730 = eroas730 / eroas730Spend
	}
	return r
}

// Of returns the rollup view of a single record, so that campaign rows can
// be rendered with the same code as aggregate rows.
func Of(rec models.CampaignRecord) models.Rollup {
	return models.Rollup{
		Campaigns:     1,
		TotalSpend:    rec.Spend,
		TotalInstalls: rec.Installs,
		TotalProfit:   rec.EProfitForecast,
		AvgCPI:        rec.CPI,
		AvgRoasD1:     rec.RoasD1,
		AvgRoasD3:     rec.RoasD3,
		AvgRoasD7:     rec.RoasD7,
		AvgRoasD14:    rec.RoasD14,
		AvgRoasD30:    rec.RoasD30,
		AvgIPM:        rec.IPM,
		AvgRrD1:       rec.RrD1,
		AvgRrD7:       rec.RrD7,
		AvgArpu:       rec.EArpuForecast,
		AvgERoas:      rec.ERoasForecast,
		AvgEROASD730:  rec.ERoasForecastD730,
	}
}
