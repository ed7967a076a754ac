package project

import (
	"github.com/radiusdt/growth-report/internal/models"
)

// DefaultGeoPatterns is the ordered geo table; the first match wins.
var DefaultGeoPatterns = []GeoPattern{
	{Tag: "US", Pattern: `(^|[^a-z])(us|usa)([^a-z]|$)`},
	{Tag: "UK", Pattern: `(^|[^a-z])(uk|gb)([^a-z]|$)`},
	{Tag: "DE", Pattern: `(^|[^a-z])(de|germany)([^a-z]|$)`},
	{Tag: "JP", Pattern: `(^|[^a-z])(jp|japan)([^a-z]|$)`},
	{Tag: "KR", Pattern: `(^|[^a-z])(kr|korea)([^a-z]|$)`},
	{Tag: "BR", Pattern: `(^|[^a-z])(br|brazil)([^a-z]|$)`},
	{Tag: "T1", Pattern: `(^|[^a-z])(t1|tier ?1)([^a-z0-9]|$)`},
	{Tag: "T2", Pattern: `(^|[^a-z])(t2|tier ?2)([^a-z0-9]|$)`},
	{Tag: "LATAM", Pattern: `latam`},
	{Tag: "EU", Pattern: `(^|[^a-z])(eu|europe)([^a-z]|$)`},
	{Tag: "WW", Pattern: `(^|[^a-z])(ww|worldwide|global)([^a-z]|$)`},
}

// mintegralGeoPatterns checks the tier tags before single countries since
// Mintegral names put the tier first ("T1_US_...").
var mintegralGeoPatterns = []GeoPattern{
	{Tag: "T1", Pattern: `(^|[^a-z])(t1|tier ?1)([^a-z0-9]|$)`},
	{Tag: "T2", Pattern: `(^|[^a-z])(t2|tier ?2)([^a-z0-9]|$)`},
	{Tag: "US", Pattern: `(^|[^a-z])(us|usa)([^a-z]|$)`},
	{Tag: "WW", Pattern: `(^|[^a-z])(ww|worldwide|global)([^a-z]|$)`},
}

// Presets are the compiled-in projects, keyed by upper-case name.
var Presets = map[string]Config{
	"REGULAR": {
		Name:        "REGULAR",
		DisplayName: "Regular",
		Shape:       models.ShapeFlat,
	},
	"TRICKY": {
		Name:        "TRICKY",
		DisplayName: "Tricky",
		Shape:       models.ShapeSourceApp,
		SourceApp:   SourceAppRule{Kind: SourceAppBundle},
	},
	"MOLOCO": {
		Name:        "MOLOCO",
		DisplayName: "Moloco",
		Shape:       models.ShapeFlat,
		SourceApp:   SourceAppRule{Kind: SourceAppAfterEquals, Marker: "_"},
	},
	"MINTEGRAL": {
		Name:        "MINTEGRAL",
		DisplayName: "Mintegral",
		Shape:       models.ShapeFlat,
		GeoPatterns: mintegralGeoPatterns,
		SourceApp:   SourceAppRule{Kind: SourceAppAfterLastPipe},
	},
	"OVERALL": {
		Name:        "OVERALL",
		DisplayName: "Overall",
		Shape:       models.ShapeNetwork,
	},
	"INCENT": {
		Name:        "INCENT",
		DisplayName: "Incent Traffic",
		Shape:       models.ShapeCountry,
		Offsets:     FieldOffsets{Date: 0, Campaign: 1, App: 2, MetricsStart: 3, RoasD14: 15, RoasD30: 16},
	},
}
