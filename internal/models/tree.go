package models

import (
	"sort"
)

// Level names a row/entity level of the report. The string values are
// persisted in the initial-value store and must not change.
type Level string

const (
	LevelApp       Level = "APP"
	LevelWeek      Level = "WEEK"
	LevelSourceApp Level = "SOURCE_APP"
	LevelNetwork   Level = "NETWORK"
	LevelCountry   Level = "COUNTRY"
	LevelCampaign  Level = "CAMPAIGN"
)

// Shape selects how a week's campaigns are grouped.
type Shape string

const (
	ShapeFlat      Shape = "flat"
	ShapeSourceApp Shape = "source_app"
	ShapeNetwork   Shape = "network"
	ShapeCountry   Shape = "country"
)

// GroupLevel returns the intermediate level produced by the shape, or "" for flat.
func (s Shape) GroupLevel() Level {
	switch s {
	case ShapeSourceApp:
		return LevelSourceApp
	case ShapeNetwork:
		return LevelNetwork
	case ShapeCountry:
		return LevelCountry
	}
	return ""
}

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	switch s {
	case ShapeFlat, ShapeSourceApp, ShapeNetwork, ShapeCountry:
		return true
	}
	return false
}

// Group is the intermediate grouping of a week: a source app, a network or a
// country, depending on the week's shape.
type Group struct {
	Level     Level            `json:"level"`
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Campaigns []CampaignRecord `json:"campaigns"`
}

// Spend returns the total spend of the group's campaigns.
func (g *Group) Spend() float64 {
	var s float64
	for _, c := range g.Campaigns {
		s += c.Spend
	}
	return s
}

// WeekBucket is one Monday-aligned week of one app. Exactly one of Campaigns
// (flat shape) or Groups (every other shape) is populated.
type WeekBucket struct {
	WeekStart string            `json:"week_start"`
	WeekEnd   string            `json:"week_end"`
	Shape     Shape             `json:"shape"`
	Campaigns []CampaignRecord  `json:"campaigns,omitempty"`
	Groups    map[string]*Group `json:"groups,omitempty"`
}

// Range returns the "<weekStart> - <weekEnd>" key used by the initial-value store.
func (w *WeekBucket) Range() string {
	return w.WeekStart + " - " + w.WeekEnd
}

// AllCampaigns returns every leaf record of the week.
func (w *WeekBucket) AllCampaigns() []CampaignRecord {
	if w.Shape == ShapeFlat {
		return w.Campaigns
	}
	var out []CampaignRecord
	for _, g := range w.GroupsByID() {
		out = append(out, g.Campaigns...)
	}
	return out
}

// GroupsByID returns the groups in ascending id order.
func (w *WeekBucket) GroupsByID() []*Group {
	out := make([]*Group, 0, len(w.Groups))
	for _, g := range w.Groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GroupsBySpend returns the groups by total spend descending, ties by id.
func (w *WeekBucket) GroupsBySpend() []*Group {
	out := w.GroupsByID()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spend() > out[j].Spend() })
	return out
}

// AppEntity is the top-level grouping of the tree.
type AppEntity struct {
	AppID    string                 `json:"app_id"`
	AppName  string                 `json:"app_name"`
	Platform string                 `json:"platform,omitempty"`
	BundleID string                 `json:"bundle_id,omitempty"`
	Weeks    map[string]*WeekBucket `json:"weeks"`
}

// SortedWeeks returns the app's weeks in ascending week-start order.
func (a *AppEntity) SortedWeeks() []*WeekBucket {
	out := make([]*WeekBucket, 0, len(a.Weeks))
	for _, w := range a.Weeks {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart < out[j].WeekStart })
	return out
}

// Tree is the full aggregation result of one run.
type Tree struct {
	Shape Shape                 `json:"shape"`
	Apps  map[string]*AppEntity `json:"apps"` // keyed by app id
}

// SortedApps returns apps ordered by name, then id.
func (t *Tree) SortedApps() []*AppEntity {
	out := make([]*AppEntity, 0, len(t.Apps))
	for _, a := range t.Apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppName != out[j].AppName {
			return out[i].AppName < out[j].AppName
		}
		return out[i].AppID < out[j].AppID
	})
	return out
}

// Empty reports whether the tree holds no weeks at all.
func (t *Tree) Empty() bool {
	for _, a := range t.Apps {
		if len(a.Weeks) > 0 {
			return false
		}
	}
	return true
}

// CampaignCount returns the number of leaf records in the tree.
func (t *Tree) CampaignCount() int {
	n := 0
	for _, a := range t.Apps {
		for _, w := range a.Weeks {
			n += len(w.AllCampaigns())
		}
	}
	return n
}
