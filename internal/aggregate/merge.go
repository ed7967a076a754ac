package aggregate

import "github.com/radiusdt/growth-report/internal/models"

// weighted returns the running average of two values with their weights.
func weighted(oldAvg, oldWeight, newVal, newWeight float64) float64 {
	total := oldWeight + newWeight
	if total == 0 {
		return 0
	}
	return (oldAvg*oldWeight + newVal*newWeight) / total
}

// MergeNetwork folds next into acc for network-grouped projects. Installs,
// spend and profit forecast are summed. CPI, IPM, retention and eARPU are
// installs-weighted running averages; ROAS and eROAS forecasts are
// spend-weighted. The identity fields of acc are kept.
func MergeNetwork(acc, next models.CampaignRecord) models.CampaignRecord {
	oldInstalls, newInstalls := acc.Installs, next.Installs
	oldSpend, newSpend := acc.Spend, next.Spend

	out := acc
	out.CPI = weighted(acc.CPI, oldInstalls, next.CPI, newInstalls)
	out.IPM = weighted(acc.IPM, oldInstalls, next.IPM, newInstalls)
	out.RrD1 = weighted(acc.RrD1, oldInstalls, next.RrD1, newInstalls)
	out.RrD7 = weighted(acc.RrD7, oldInstalls, next.RrD7, newInstalls)
	out.EArpuForecast = weighted(acc.EArpuForecast, oldInstalls, next.EArpuForecast, newInstalls)

	out.RoasD1 = weighted(acc.RoasD1, oldSpend, next.RoasD1, newSpend)
	out.RoasD3 = weighted(acc.RoasD3, oldSpend, next.RoasD3, newSpend)
	out.RoasD7 = weighted(acc.RoasD7, oldSpend, next.RoasD7, newSpend)
	out.RoasD14 = weighted(acc.RoasD14, oldSpend, next.RoasD14, newSpend)
	out.RoasD30 = weighted(acc.RoasD30, oldSpend, next.RoasD30, newSpend)
	out.ERoasForecast = weighted(acc.ERoasForecast, oldSpend, next.ERoasForecast, newSpend)
	out.ERoasForecastD730 = weighted(acc.ERoasForecastD730, oldSpend, next.ERoasForecastD730, newSpend)

	out.Installs = oldInstalls + newInstalls
	out.Spend = oldSpend + newSpend
	out.EProfitForecast = acc.EProfitForecast + next.EProfitForecast
	return out
}
