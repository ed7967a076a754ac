package wow

import (
	"math"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
)

// Classify assigns the growth status of a week given the previous and
// current profit and the percent changes. Rules are evaluated in order and
// the first match wins; sign flips of profit take precedence over every
// percentage rule.
func Classify(t project.Thresholds, prevProfit, currProfit, spendPct, profitPct float64) models.GrowthStatus {
	switch {
	case prevProfit < 0 && currProfit > 0:
		return models.StatusHealthyGrowth
	case prevProfit > 0 && currProfit < 0:
		return models.StatusInefficientGrowth
	case profitPct <= t.InefficientProfit:
		return models.StatusInefficientGrowth
	case spendPct >= t.HealthySpend && profitPct >= t.HealthyProfit:
		return models.StatusHealthyGrowth
	case spendPct <= t.EfficiencySpend && profitPct >= t.EfficiencyProfit:
		return models.StatusEfficiencyImprovement
	case spendPct <= t.ScalingDownSpend:
		return scalingDown(t, profitPct)
	case math.Abs(spendPct) <= t.StableSpendBand && math.Abs(profitPct) <= t.StableProfitBand:
		return models.StatusStable
	}
	return models.StatusStable
}

func scalingDown(t project.Thresholds, profitPct float64) models.GrowthStatus {
	switch {
	case profitPct >= 0:
		return models.StatusScalingDownEfficient
	case profitPct >= t.ModerateProfitMin && profitPct <= t.ModerateProfitMax:
		return models.StatusScalingDownModerate
	case profitPct <= t.ProblematicProfit:
		return models.StatusScalingDownProblematic
	}
	return models.StatusScalingDown
}

// PercentChange returns the change from prev to curr relative to |prev|, or
// 0 when prev is zero.
func PercentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / math.Abs(prev) * 100
}
