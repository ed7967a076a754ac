// Package normalize turns flat analytics rows into typed campaign records.
// It is a best-effort stage: rows that cannot be used are skipped and
// counted, never fatal.
package normalize

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/weeks"
	"go.uber.org/zap"
)

// Skip reasons.
var (
	ErrShortRow        = errors.New("short row")
	ErrBadDate         = errors.New("unparsable date")
	ErrCurrentWeek     = errors.New("current week")
	ErrSettlingWeek    = errors.New("last week not settled")
	ErrMissingCampaign = errors.New("missing campaign descriptor")
	ErrMissingApp      = errors.New("missing app descriptor")
	ErrNoSpend         = errors.New("non-positive spend")
)

const (
	// UnknownSourceApp is used when no source app can be derived.
	UnknownSourceApp = "Unknown"
	// OtherGeo is used when no geo pattern matches.
	OtherGeo = "OTHER"
)

// Stats counts what happened to the rows of one run.
type Stats struct {
	Read    int            `json:"read"`
	Kept    int            `json:"kept"`
	Skipped map[string]int `json:"skipped"`
}

// SkippedTotal returns the number of skipped rows.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

type geoRule struct {
	tag string
	re  *regexp.Regexp
}

// Normalizer applies one project's extraction rules.
type Normalizer struct {
	cfg     project.Config
	window  weeks.Window
	apps    models.AppsIndex
	geo     []geoRule
	country *regexp.Regexp
	logger  *zap.Logger
}

// New compiles the project's patterns. apps may be nil when the project
// does not resolve bundle ids.
func New(cfg project.Config, window weeks.Window, apps models.AppsIndex, logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Normalizer{cfg: cfg, window: window, apps: apps, logger: logger}
	for _, p := range cfg.GeoPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("geo pattern %s: %w", p.Tag, err)
		}
		n.geo = append(n.geo, geoRule{tag: p.Tag, re: re})
	}
	if cfg.Shape == models.ShapeCountry {
		pattern := cfg.CountryPattern
		if pattern == "" {
			pattern = project.DefaultCountryPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("country pattern: %w", err)
		}
		n.country = re
	}
	return n, nil
}

// NormalizeAll normalizes every row, skipping the unusable ones.
func (n *Normalizer) NormalizeAll(rows []models.RawRow) ([]models.CampaignRecord, Stats) {
	stats := Stats{Read: len(rows), Skipped: make(map[string]int)}
	out := make([]models.CampaignRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := n.Normalize(row)
		if err != nil {
			stats.Skipped[err.Error()]++
			n.logger.Debug("row skipped", zap.Int("row", i), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	stats.Kept = len(out)
	return out, stats
}

// Normalize converts one row, or returns the reason it was skipped.
func (n *Normalizer) Normalize(row models.RawRow) (models.CampaignRecord, error) {
	off := n.cfg.Offsets
	if len(row) < off.MinRowLen() {
		return models.CampaignRecord{}, ErrShortRow
	}

	date, err := weeks.ParseDate(row[off.Date].String("value"), n.window.CurrentMonday.Location())
	if err != nil {
		return models.CampaignRecord{}, ErrBadDate
	}
	monday := weeks.MondayOf(date)
	if n.window.InCurrentWeek(monday) {
		return models.CampaignRecord{}, ErrCurrentWeek
	}
	if !n.window.Admits(monday) {
		return models.CampaignRecord{}, ErrSettlingWeek
	}

	camp := row[off.Campaign]
	name := camp.String("campaignName", "value", "name")
	id := camp.String("campaignId", "id")
	if name == "" && id == "" {
		return models.CampaignRecord{}, ErrMissingCampaign
	}
	if id == "" {
		id = name
	}

	appCell := row[off.App]
	app := models.AppInfo{
		ID:       appCell.String("id"),
		Name:     appCell.String("name", "value"),
		Platform: appCell.String("platform"),
		BundleID: appCell.String("bundleId"),
	}
	if app.ID == "" && app.Name == "" {
		return models.CampaignRecord{}, ErrMissingApp
	}
	if app.Name == "" {
		app.Name = app.ID
	}
	if app.ID == "" {
		app.ID = app.Name
	}
	app.Name = n.cfg.AppName(app.Name)

	rec := models.CampaignRecord{
		App:          app,
		CampaignID:   id,
		CampaignName: name,
		Date:         date,
		WeekStart:    weeks.Start(monday),
		WeekEnd:      weeks.End(monday),
		Status:       camp.String("status"),
		Type:         camp.String("type"),
		IsAutomated:  camp.Bool("isAutomated"),
	}
	n.readMetrics(row, &rec)
	if !rec.Admissible() {
		return models.CampaignRecord{}, ErrNoSpend
	}

	rec.Geo = n.geoOf(name)
	rec.SourceApp, rec.SourceAppID = n.sourceAppOf(name)
	switch n.cfg.Shape {
	case models.ShapeNetwork:
		rec.NetworkID = id
		rec.NetworkName = name
		if rec.NetworkName == "" {
			rec.NetworkName = id
		}
	case models.ShapeCountry:
		rec.CountryCode = n.countryOf(name)
	}
	return rec, nil
}

func (n *Normalizer) readMetrics(row models.RawRow, rec *models.CampaignRecord) {
	off := n.cfg.Offsets
	metric := func(i int) float64 { return row[off.MetricsStart+i].Number() }
	optional := func(i int) float64 {
		if i <= 0 || i >= len(row) {
			return 0
		}
		return row[i].Number()
	}

	rec.CPI = metric(project.MetricCPI)
	rec.Installs = metric(project.MetricInstalls)
	rec.IPM = metric(project.MetricIPM)
	rec.Spend = metric(project.MetricSpend)
	rec.RrD1 = metric(project.MetricRrD1)
	rec.RoasD1 = metric(project.MetricRoasD1)
	rec.RrD7 = metric(project.MetricRrD7)
	rec.RoasD7 = metric(project.MetricRoasD7)
	rec.EArpuForecast = metric(project.MetricEArpu)
	rec.ERoasForecast = metric(project.MetricERoas)
	rec.EProfitForecast = metric(project.MetricEProfit)
	rec.ERoasForecastD730 = metric(project.MetricERoasD730)

	rec.RoasD3 = optional(off.RoasD3)
	rec.RoasD14 = optional(off.RoasD14)
	rec.RoasD30 = optional(off.RoasD30)
}
