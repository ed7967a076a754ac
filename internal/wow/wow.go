// Package wow computes week-over-week deltas and growth statuses for every
// entity lineage of an aggregation tree.
package wow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/rollup"
)

// ErrMissingEntry is returned when a result is requested for an entity week
// that was never part of the computed series.
var ErrMissingEntry = errors.New("no week-over-week entry")

// EntityKey identifies one lineage. Campaigns are keyed by campaign id
// alone; app weeks by app name; groups by app name and group id.
type EntityKey struct {
	Level   models.Level
	AppName string
	ID      string
}

// CampaignKey returns the lineage key of a campaign.
func CampaignKey(campaignID string) EntityKey {
	return EntityKey{Level: models.LevelCampaign, ID: campaignID}
}

// AppWeekKey returns the lineage key of an app's weeks.
func AppWeekKey(appName string) EntityKey {
	return EntityKey{Level: models.LevelWeek, AppName: appName}
}

// GroupKey returns the lineage key of a source app, network or country.
func GroupKey(level models.Level, appName, id string) EntityKey {
	return EntityKey{Level: level, AppName: appName, ID: id}
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Level, k.AppName, k.ID)
}

// Snapshot is one observed week of a lineage.
type Snapshot struct {
	WeekStart string
	Spend     float64
	Profit    float64
}

// Series holds the weekly snapshots of every lineage. Snapshots of the same
// week are summed.
type Series struct {
	weeks map[EntityKey]map[string]*Snapshot
}

// NewSeries returns an empty series.
func NewSeries() *Series {
	return &Series{weeks: make(map[EntityKey]map[string]*Snapshot)}
}

// Add records spend and profit for a lineage week.
func (s *Series) Add(key EntityKey, weekStart string, spend, profit float64) {
	byWeek, ok := s.weeks[key]
	if !ok {
		byWeek = make(map[string]*Snapshot)
		s.weeks[key] = byWeek
	}
	snap, ok := byWeek[weekStart]
	if !ok {
		snap = &Snapshot{WeekStart: weekStart}
		byWeek[weekStart] = snap
	}
	snap.Spend += spend
	snap.Profit += profit
}

// Len returns the number of lineages.
func (s *Series) Len() int { return len(s.weeks) }

// Sorted returns the snapshots of one lineage in ascending week order.
func (s *Series) Sorted(key EntityKey) []Snapshot {
	byWeek := s.weeks[key]
	out := make([]Snapshot, 0, len(byWeek))
	for _, snap := range byWeek {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart < out[j].WeekStart })
	return out
}

type resultKey struct {
	entity    EntityKey
	weekStart string
}

// Results are the computed deltas of every lineage week.
type Results struct {
	table map[resultKey]models.WoWResult
}

// Get returns the result of one lineage week.
func (r Results) Get(key EntityKey, weekStart string) (models.WoWResult, error) {
	res, ok := r.table[resultKey{key, weekStart}]
	if !ok {
		return models.WoWResult{}, fmt.Errorf("%w: %s week %s", ErrMissingEntry, key, weekStart)
	}
	return res, nil
}

// Len returns the number of lineage weeks.
func (r Results) Len() int { return len(r.table) }

// Counts returns the number of results per growth status.
func (r Results) Counts() map[models.GrowthStatus]int {
	out := make(map[models.GrowthStatus]int)
	for _, res := range r.table {
		out[res.GrowthStatus]++
	}
	return out
}

// Compute walks every lineage in week order. The first observed week is
// "First Week"; each later week is compared with the previous observed
// week, which is not necessarily the calendar-adjacent one.
func Compute(series *Series, t project.Thresholds) Results {
	res := Results{table: make(map[resultKey]models.WoWResult)}
	for key := range series.weeks {
		snaps := series.Sorted(key)
		for i, curr := range snaps {
			if i == 0 {
				res.table[resultKey{key, curr.WeekStart}] = models.WoWResult{GrowthStatus: models.StatusFirstWeek}
				continue
			}
			prev := snaps[i-1]
			spendPct := PercentChange(prev.Spend, curr.Spend)
			profitPct := PercentChange(prev.Profit, curr.Profit)
			res.table[resultKey{key, curr.WeekStart}] = models.WoWResult{
				SpendChangePercent:   spendPct,
				EProfitChangePercent: profitPct,
				GrowthStatus:         Classify(t, prev.Profit, curr.Profit, spendPct, profitPct),
			}
		}
	}
	return res
}

// SeriesFromTree builds the lineages of every level of the tree using the
// same identities the tree was built with. Network groups hold one merged
// record and contribute no campaign lineage.
func SeriesFromTree(tree *models.Tree, memo *rollup.Memo) *Series {
	s := NewSeries()
	for _, app := range tree.SortedApps() {
		for _, week := range app.SortedWeeks() {
			wr := memo.Week(app, week)
			s.Add(AppWeekKey(app.AppName), week.WeekStart, wr.TotalSpend, wr.TotalProfit)

			if week.Shape == models.ShapeFlat {
				addCampaigns(s, week.WeekStart, week.Campaigns)
				continue
			}
			for _, g := range week.GroupsByID() {
				gr := memo.Group(app, week, g)
				s.Add(GroupKey(g.Level, app.AppName, g.ID), week.WeekStart, gr.TotalSpend, gr.TotalProfit)
				if g.Level != models.LevelNetwork {
					addCampaigns(s, week.WeekStart, g.Campaigns)
				}
			}
		}
	}
	return s
}

func addCampaigns(s *Series, weekStart string, campaigns []models.CampaignRecord) {
	for _, c := range campaigns {
		s.Add(CampaignKey(c.CampaignID), weekStart, c.Spend, c.EProfitForecast)
	}
}
