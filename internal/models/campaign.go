package models

import "time"

// AppInfo identifies the advertised app a campaign belongs to.
type AppInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
	BundleID string `json:"bundle_id,omitempty"`
}

// CampaignRecord is one campaign's metrics for one week.
type CampaignRecord struct {
	App AppInfo `json:"app"`

	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	Date         time.Time `json:"date"`
	WeekStart    string    `json:"week_start"` // Monday, YYYY-MM-DD
	WeekEnd      string    `json:"week_end"`   // Sunday, YYYY-MM-DD

	// Derived from the campaign name
	Geo         string `json:"geo"`
	SourceApp   string `json:"source_app"`              // display name or bundle id
	SourceAppID string `json:"source_app_id,omitempty"` // bundle id when one was found
	CountryCode string `json:"country_code,omitempty"`

	// Set for network-grouped projects where the descriptor is a network
	NetworkID   string `json:"network_id,omitempty"`
	NetworkName string `json:"network_name,omitempty"`

	// Volume and cost
	Spend    float64 `json:"spend"`
	Installs float64 `json:"installs"`
	CPI      float64 `json:"cpi"`
	IPM      float64 `json:"ipm"`

	// Percent values
	RoasD1  float64 `json:"roas_d1"`
	RoasD3  float64 `json:"roas_d3"`
	RoasD7  float64 `json:"roas_d7"`
	RoasD14 float64 `json:"roas_d14"`
	RoasD30 float64 `json:"roas_d30"`
	RrD1    float64 `json:"rr_d1"`
	RrD7    float64 `json:"rr_d7"`

	// Forecasts. Zero means "no forecast".
	EArpuForecast     float64 `json:"earpu_forecast"`
	ERoasForecast     float64 `json:"eroas_forecast"` // 365d
	EProfitForecast   float64 `json:"eprofit_forecast"`
	ERoasForecastD730 float64 `json:"eroas_forecast_d730"`

	Status      string `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	IsAutomated bool   `json:"is_automated"`
}

// Admissible reports whether the record passes the spend admission criterion.
func (c CampaignRecord) Admissible() bool {
	return c.Spend > 0
}
