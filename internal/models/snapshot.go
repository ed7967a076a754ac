package models

import "time"

// Snapshot is one archived report row of a successful run.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	Project     string    `json:"project"`
	GeneratedAt time.Time `json:"generated_at"`

	Level      Level  `json:"level"`
	AppName    string `json:"app_name"`
	WeekStart  string `json:"week_start"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`

	Spend        float64      `json:"spend"`
	Installs     float64      `json:"installs"`
	Profit       float64      `json:"profit"`
	EROASD730    float64      `json:"eroas_d730"`
	SpendChange  float64      `json:"spend_change"`
	ProfitChange float64      `json:"profit_change"`
	GrowthStatus GrowthStatus `json:"growth_status"`
}
