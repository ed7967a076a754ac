package report

import (
	"strconv"
	"strings"

	"github.com/radiusdt/growth-report/internal/format"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
)

// Columns is the header of the report table, in Row.Values order.
var Columns = []string{
	"Level",
	"Name / Week",
	"ID",
	"GEO",
	"Spend",
	"Spend WoW %",
	"Installs",
	"CPI",
	"ROAS",
	"IPM",
	"RR",
	"eARPU",
	"eROAS 365",
	"eROAS 730",
	"eProfit 730",
	"eProfit 730 WoW %",
	"Growth Status",
	"Comments",
}

// Row is one table row. Numbers are kept raw for JSON consumers; Values
// renders the display strings.
type Row struct {
	Level     models.Level `json:"level"`
	AppName   string       `json:"app_name"`
	WeekStart string       `json:"week_start,omitempty"`
	Name      string       `json:"name"`
	ID        string       `json:"id,omitempty"`
	Geo       string       `json:"geo,omitempty"`

	Spend     float64 `json:"spend"`
	Installs  float64 `json:"installs"`
	CPI       float64 `json:"cpi"`
	ROAS      string  `json:"roas"`
	IPM       float64 `json:"ipm"`
	Retention string  `json:"retention"`
	EArpu     float64 `json:"earpu"`
	ERoas365  float64 `json:"eroas_365"`

	ERoas730        float64 `json:"eroas_730"`
	ERoas730Trend   string  `json:"eroas_730_trend"`
	EProfit730      float64 `json:"eprofit_730"`
	EProfit730Trend string  `json:"eprofit_730_trend"`

	// Nil on APP rows, which have no week-over-week comparison.
	SpendChange  *float64            `json:"spend_change_percent,omitempty"`
	ProfitChange *float64            `json:"eprofit_change_percent,omitempty"`
	GrowthStatus models.GrowthStatus `json:"growth_status,omitempty"`

	Comments string `json:"comments"`
}

// Values renders the row in Columns order.
func (r Row) Values() []string {
	return []string{
		string(r.Level),
		r.Name,
		r.ID,
		r.Geo,
		format.Currency(r.Spend),
		change(r.SpendChange),
		format.Fixed(r.Installs, 0),
		format.Currency(r.CPI),
		r.ROAS,
		format.Fixed(r.IPM, 2),
		r.Retention,
		format.Currency(r.EArpu),
		format.Percent(r.ERoas365, 0),
		r.ERoas730Trend,
		r.EProfit730Trend,
		change(r.ProfitChange),
		string(r.GrowthStatus),
		r.Comments,
	}
}

func change(v *float64) string {
	if v == nil {
		return ""
	}
	return format.Change(*v)
}

// Horizon is one ROAS day count shown in the ROAS column.
type Horizon int

// Horizons returns the ROAS days rendered for a project: D1 and D7 always,
// D3 and D30 when the project reads them, and D14 only when D3 is absent.
func Horizons(o project.FieldOffsets) []Horizon {
	hs := []Horizon{1}
	if o.RoasD3 > 0 {
		hs = append(hs, 3)
	}
	hs = append(hs, 7)
	if o.RoasD14 > 0 && o.RoasD3 == 0 {
		hs = append(hs, 14)
	}
	if o.RoasD30 > 0 {
		hs = append(hs, 30)
	}
	return hs
}

// HorizonLabel renders "D1→D3→D7→D30".
func HorizonLabel(hs []Horizon) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = "D" + strconv.Itoa(int(h))
	}
	return strings.Join(parts, "→")
}

func roasString(hs []Horizon, r models.Rollup) string {
	values := make([]float64, len(hs))
	for i, h := range hs {
		switch h {
		case 1:
			values[i] = r.AvgRoasD1
		case 3:
			values[i] = r.AvgRoasD3
		case 7:
			values[i] = r.AvgRoasD7
		case 14:
			values[i] = r.AvgRoasD14
		case 30:
			values[i] = r.AvgRoasD30
		}
	}
	return format.Series(1, values...)
}

func retentionString(r models.Rollup) string {
	return format.Series(1, r.AvgRrD1, r.AvgRrD7)
}
