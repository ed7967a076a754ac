package rollup

import (
	"math"
	"testing"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWeekTotalsSums(t *testing.T) {
	r := CalculateWeekTotals([]models.CampaignRecord{
		{Spend: 100, Installs: 10, EProfitForecast: 30},
		{Spend: 50, Installs: 5, EProfitForecast: -10},
	})
	if r.TotalSpend != 150 || r.TotalInstalls != 15 || r.TotalProfit != 20 {
		t.Errorf("totals = %+v", r)
	}
	if !approx(r.AvgCPI, 10) {
		t.Errorf("avg cpi = %v", r.AvgCPI)
	}
	if r.Campaigns != 2 {
		t.Errorf("campaigns = %d", r.Campaigns)
	}
}

func TestWeekTotalsNoInstalls(t *testing.T) {
	r := CalculateWeekTotals([]models.CampaignRecord{{Spend: 100}})
	if r.AvgCPI != 0 {
		t.Errorf("avg cpi = %v, want 0", r.AvgCPI)
	}
}

func TestWeekTotalsEmpty(t *testing.T) {
	if r := CalculateWeekTotals(nil); r != (models.Rollup{}) {
		t.Errorf("empty = %+v", r)
	}
}

func TestSimpleMeans(t *testing.T) {
	r := CalculateWeekTotals([]models.CampaignRecord{
		{Spend: 1000, RoasD1: 10, RoasD7: 30, IPM: 4, RrD1: 40, RrD7: 10, EArpuForecast: 1},
		{Spend: 1, RoasD1: 20, RoasD7: 10, IPM: 6, RrD1: 20, RrD7: 20, EArpuForecast: 3},
	})
	// unweighted, so the tiny campaign counts as much as the big one
	if !approx(r.AvgRoasD1, 15) || !approx(r.AvgRoasD7, 20) || !approx(r.AvgIPM, 5) {
		t.Errorf("means = %+v", r)
	}
	if !approx(r.AvgRrD1, 30) || !approx(r.AvgRrD7, 15) || !approx(r.AvgArpu, 2) {
		t.Errorf("means = %+v", r)
	}
}

func TestForecastWeightingAndFilter(t *testing.T) {
	tests := []struct {
		name      string
		campaigns []models.CampaignRecord
		want730   float64
	}{
		{
			name: "outlier excluded",
			campaigns: []models.CampaignRecord{
				{ERoasForecastD730: 200, Spend: 100},
				{ERoasForecastD730: 2000, Spend: 900},
			},
			want730: 200,
		},
		{
			name: "spend weighted",
			campaigns: []models.CampaignRecord{
				{ERoasForecastD730: 100, Spend: 300},
				{ERoasForecastD730: 200, Spend: 100},
			},
			want730: 125,
		},
		{
			name: "bounds inclusive",
			campaigns: []models.CampaignRecord{
				{ERoasForecastD730: 1, Spend: 1},
				{ERoasForecastD730: 1000, Spend: 1},
			},
			want730: 500.5,
		},
		{
			name: "nothing valid",
			campaigns: []models.CampaignRecord{
				{ERoasForecastD730: 0, Spend: 10},
				{ERoasForecastD730: 0.5, Spend: 10},
				{ERoasForecastD730: 150, Spend: 0},
			},
			want730: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CalculateWeekTotals(tt.campaigns)
			if !approx(r.AvgEROASD730, tt.want730) {
				t.Errorf("avg eroas d730 = %v, want %v", r.AvgEROASD730, tt.want730)
			}
		})
	}
}

func TestCalculatorBounds(t *testing.T) {
	campaigns := []models.CampaignRecord{
		{ERoasForecast: 1500, Spend: 10},
		{ERoasForecast: 100, Spend: 10},
	}
	wide := New(project.ForecastBounds{Min: 1, Max: 2000}).WeekTotals(campaigns)
	if !approx(wide.AvgERoas, 800) {
		t.Errorf("wide bounds = %v", wide.AvgERoas)
	}
	if def := CalculateWeekTotals(campaigns); !approx(def.AvgERoas, 100) {
		t.Errorf("default bounds = %v", def.AvgERoas)
	}
}

func TestMemo(t *testing.T) {
	app := &models.AppEntity{AppID: "a", AppName: "A", Weeks: map[string]*models.WeekBucket{}}
	w1 := &models.WeekBucket{WeekStart: "2024-01-01", Shape: models.ShapeSourceApp, Groups: map[string]*models.Group{
		"x": {Level: models.LevelSourceApp, ID: "x", Campaigns: []models.CampaignRecord{{Spend: 10}, {Spend: 5}}},
		"y": {Level: models.LevelSourceApp, ID: "y", Campaigns: []models.CampaignRecord{{Spend: 1}}},
	}}
	w2 := &models.WeekBucket{WeekStart: "2024-01-08", Shape: models.ShapeSourceApp, Groups: map[string]*models.Group{
		"x": {Level: models.LevelSourceApp, ID: "x", Campaigns: []models.CampaignRecord{{Spend: 4}}},
	}}
	app.Weeks[w1.WeekStart] = w1
	app.Weeks[w2.WeekStart] = w2

	m := NewMemo(New(project.DefaultForecastBounds))
	if got := m.Week(app, w1).TotalSpend; got != 16 {
		t.Errorf("week spend = %v", got)
	}
	if got := m.Group(app, w1, w1.Groups["x"]).TotalSpend; got != 15 {
		t.Errorf("group x spend = %v", got)
	}
	// same group id in another week is a different entry
	if got := m.Group(app, w2, w2.Groups["x"]).TotalSpend; got != 4 {
		t.Errorf("week 2 group x spend = %v", got)
	}
	if got := m.App(app).TotalSpend; got != 20 {
		t.Errorf("app spend = %v", got)
	}
	m.Week(app, w1)
	hits, misses := m.Stats()
	if hits != 1 || misses != 4 || m.Len() != 4 {
		t.Errorf("hits %d misses %d len %d", hits, misses, m.Len())
	}
}

func TestOf(t *testing.T) {
	rec := models.CampaignRecord{Spend: 12, Installs: 3, CPI: 4, ERoasForecastD730: 140, EProfitForecast: 7}
	r := Of(rec)
	if r.TotalSpend != 12 || r.AvgCPI != 4 || r.AvgEROASD730 != 140 || r.TotalProfit != 7 || r.Campaigns != 1 {
		t.Errorf("Of = %+v", r)
	}
}
