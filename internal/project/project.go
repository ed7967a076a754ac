// Package project describes the per-project extraction, grouping and
// classification rules. A Config is built once per run and only read after.
package project

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/radiusdt/growth-report/internal/models"
)

// FieldOffsets locates cells inside a raw analytics row. The twelve core
// metrics are contiguous starting at MetricsStart, in the order
// cpi, installs, ipm, spend, rrD1, roasD1, rrD7, roasD7, eArpu, eRoas,
// eProfit, eRoasD730. The optional ROAS horizons are absent when 0.
type FieldOffsets struct {
	Date         int `yaml:"date" validate:"min=0"`
	Campaign     int `yaml:"campaign" validate:"min=0"`
	App          int `yaml:"app" validate:"min=0"`
	MetricsStart int `yaml:"metrics_start" validate:"min=0"`

	RoasD3  int `yaml:"roas_d3" validate:"min=0"`
	RoasD14 int `yaml:"roas_d14" validate:"min=0"`
	RoasD30 int `yaml:"roas_d30" validate:"min=0"`
}

// MetricCount is the number of contiguous core metric cells.
const MetricCount = 12

// Core metric positions relative to MetricsStart.
const (
	MetricCPI = iota
	MetricInstalls
	MetricIPM
	MetricSpend
	MetricRrD1
	MetricRoasD1
	MetricRrD7
	MetricRoasD7
	MetricEArpu
	MetricERoas
	MetricEProfit
	MetricERoasD730
)

// MinRowLen is the shortest row that still carries every core metric.
func (o FieldOffsets) MinRowLen() int {
	n := o.MetricsStart + MetricCount
	for _, i := range []int{o.Date, o.Campaign, o.App} {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

// DefaultOffsets is the layout of the standard analytics query.
var DefaultOffsets = FieldOffsets{Date: 0, Campaign: 1, App: 2, MetricsStart: 3}

// GeoPattern tags a campaign whose name matches Pattern (case-insensitive).
type GeoPattern struct {
	Tag     string `yaml:"tag" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`
}

// SourceAppKind selects the source-app derivation heuristic.
type SourceAppKind string

const (
	SourceAppNone          SourceAppKind = ""
	SourceAppAfterEquals   SourceAppKind = "after_equals"
	SourceAppAfterLastPipe SourceAppKind = "after_last_pipe"
	SourceAppBundle        SourceAppKind = "bundle"
)

// SourceAppRule derives the source app from a campaign name.
type SourceAppRule struct {
	Kind SourceAppKind `yaml:"kind" validate:"omitempty,oneof=after_equals after_last_pipe bundle"`
	// Marker, when set, ends an after_equals value at its next occurrence.
	Marker string `yaml:"marker"`
}

// Thresholds drive growth classification. Values are percentages.
type Thresholds struct {
	HealthySpend      float64 `yaml:"healthy_spend"`       // spend ≥
	HealthyProfit     float64 `yaml:"healthy_profit"`      // profit ≥
	EfficiencySpend   float64 `yaml:"efficiency_spend"`    // spend ≤
	EfficiencyProfit  float64 `yaml:"efficiency_profit"`   // profit ≥
	ScalingDownSpend  float64 `yaml:"scaling_down_spend"`  // spend ≤
	InefficientProfit float64 `yaml:"inefficient_profit"`  // profit ≤
	ModerateProfitMin float64 `yaml:"moderate_profit_min"` // profit ≥
	ModerateProfitMax float64 `yaml:"moderate_profit_max"` // profit ≤
	ProblematicProfit float64 `yaml:"problematic_profit"`  // profit ≤
	StableSpendBand   float64 `yaml:"stable_spend_band"`   // |spend| ≤
	StableProfitBand  float64 `yaml:"stable_profit_band"`  // |profit| ≤
}

// DefaultThresholds are the classification thresholds used unless a
// project overrides them.
var DefaultThresholds = Thresholds{
	HealthySpend:      10,
	HealthyProfit:     5,
	EfficiencySpend:   -5,
	EfficiencyProfit:  8,
	ScalingDownSpend:  -15,
	InefficientProfit: -8,
	ModerateProfitMin: -10,
	ModerateProfitMax: -1,
	ProblematicProfit: -15,
	StableSpendBand:   2,
	StableProfitBand:  2,
}

// ForecastBounds is the inclusive validity range for long-horizon forecasts.
type ForecastBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultForecastBounds rejects sentinel and outlier forecasts.
var DefaultForecastBounds = ForecastBounds{Min: 1, Max: 1000}

// Contains reports whether v is inside the bounds.
func (b ForecastBounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Config is the full rule set of one project.
type Config struct {
	Name        string        `yaml:"name" validate:"required"`
	DisplayName string        `yaml:"display_name"`
	Shape       models.Shape  `yaml:"shape" validate:"required,oneof=flat source_app network country"`
	Offsets     FieldOffsets  `yaml:"offsets"`
	GeoPatterns []GeoPattern  `yaml:"geo_patterns" validate:"dive"`
	SourceApp   SourceAppRule `yaml:"source_app"`

	// CountryPattern captures an ISO country code from campaign names for the
	// country shape. The first capture group is used.
	CountryPattern string `yaml:"country_pattern"`

	Thresholds Thresholds     `yaml:"thresholds"`
	Forecast   ForecastBounds `yaml:"forecast"`

	// LegacyAppNames maps historical app names to the stable join key.
	LegacyAppNames map[string]string `yaml:"legacy_app_names"`

	// RecordZeroProfit lets an exact 0 profit be stored as an initial value.
	RecordZeroProfit bool `yaml:"record_zero_profit"`
}

// DefaultCountryPattern matches a two-letter upper-case code delimited by
// "_", "|", "-" or whitespace.
const DefaultCountryPattern = `(?:^|[_|\-\s])([A-Z]{2})(?:[_|\-\s]|$)`

// AppName applies the legacy remapping to name.
func (c Config) AppName(name string) string {
	if mapped, ok := c.LegacyAppNames[name]; ok {
		return mapped
	}
	return name
}

// Title returns the display name, falling back to Name.
func (c Config) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// withDefaults fills zero-valued sections.
func (c Config) withDefaults() Config {
	if c.Shape == "" {
		c.Shape = models.ShapeFlat
	}
	if c.Offsets == (FieldOffsets{}) {
		c.Offsets = DefaultOffsets
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = DefaultThresholds
	}
	if c.Forecast == (ForecastBounds{}) {
		c.Forecast = DefaultForecastBounds
	}
	if c.GeoPatterns == nil {
		c.GeoPatterns = DefaultGeoPatterns
	}
	if c.Shape == models.ShapeCountry && c.CountryPattern == "" {
		c.CountryPattern = DefaultCountryPattern
	}
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	return c
}

// Check verifies that patterns compile and the shape has what it needs.
func (c Config) Check() error {
	if !c.Shape.Valid() {
		return fmt.Errorf("project %s: unknown shape %q", c.Name, c.Shape)
	}
	for _, p := range c.GeoPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("project %s: geo pattern %s: %w", c.Name, p.Tag, err)
		}
	}
	if c.Shape == models.ShapeCountry {
		re, err := regexp.Compile(c.CountryPattern)
		if err != nil {
			return fmt.Errorf("project %s: country pattern: %w", c.Name, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("project %s: country pattern needs a capture group", c.Name)
		}
	}
	if c.Shape == models.ShapeSourceApp && c.SourceApp.Kind == SourceAppNone {
		return fmt.Errorf("project %s: source_app shape needs a source_app rule", c.Name)
	}
	if c.Forecast.Min > c.Forecast.Max {
		return fmt.Errorf("project %s: forecast bounds min %.2f > max %.2f", c.Name, c.Forecast.Min, c.Forecast.Max)
	}
	return nil
}
