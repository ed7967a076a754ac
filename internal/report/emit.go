package report

import (
	"fmt"

	"github.com/radiusdt/growth-report/internal/initial"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/rollup"
	"github.com/radiusdt/growth-report/internal/wow"
)

// Emitter flattens an aggregation tree into table rows.
type Emitter struct {
	horizons []Horizon
	memo     *rollup.Memo
	results  wow.Results
	tracker  *initial.Tracker
}

// NewEmitter returns an emitter rendering ROAS for the given horizons.
func NewEmitter(horizons []Horizon, memo *rollup.Memo, results wow.Results, tracker *initial.Tracker) *Emitter {
	return &Emitter{horizons: horizons, memo: memo, results: results, tracker: tracker}
}

// Emit returns the rows of the tree: apps by name, each followed by its
// weeks newest first. A week lists its groups by spend, each group followed
// by its campaigns; flat weeks list campaigns directly. Network groups have
// no campaign rows. A missing week-over-week entry aborts the walk.
func (e *Emitter) Emit(tree *models.Tree) ([]Row, error) {
	var rows []Row
	for _, app := range tree.SortedApps() {
		rows = append(rows, e.appRow(app))

		weeks := app.SortedWeeks()
		for i := len(weeks) - 1; i >= 0; i-- {
			week := weeks[i]
			row, err := e.weekRow(app, week)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)

			if week.Shape == models.ShapeFlat {
				if rows, err = e.appendCampaigns(rows, app, week, week.Campaigns); err != nil {
					return nil, err
				}
				continue
			}
			for _, g := range week.GroupsBySpend() {
				row, err := e.groupRow(app, week, g)
				if err != nil {
					return nil, err
				}
				rows = append(rows, row)
				if g.Level == models.LevelNetwork {
					continue
				}
				if rows, err = e.appendCampaigns(rows, app, week, g.Campaigns); err != nil {
					return nil, err
				}
			}
		}
	}
	return rows, nil
}

func (e *Emitter) appRow(app *models.AppEntity) Row {
	key := models.InitialKey{Level: models.LevelApp, AppName: app.AppName}
	row := e.fill(Row{
		Level:   models.LevelApp,
		AppName: app.AppName,
		Name:    app.AppName,
		ID:      app.AppID,
	}, e.memo.App(app), key)
	return row
}

func (e *Emitter) weekRow(app *models.AppEntity, week *models.WeekBucket) (Row, error) {
	row := e.fill(Row{
		Level:     models.LevelWeek,
		AppName:   app.AppName,
		WeekStart: week.WeekStart,
		Name:      week.Range(),
	}, e.memo.Week(app, week), initial.WeekKey(app.AppName, week))
	return e.withWoW(row, wow.AppWeekKey(app.AppName), week.WeekStart)
}

func (e *Emitter) groupRow(app *models.AppEntity, week *models.WeekBucket, g *models.Group) (Row, error) {
	row := Row{
		Level:     g.Level,
		AppName:   app.AppName,
		WeekStart: week.WeekStart,
		Name:      g.Name,
		ID:        g.ID,
	}
	if g.Level == models.LevelCountry {
		row.Geo = g.ID
	}
	row = e.fill(row, e.memo.Group(app, week, g), initial.GroupKey(app.AppName, week, g))
	return e.withWoW(row, wow.GroupKey(g.Level, app.AppName, g.ID), week.WeekStart)
}

func (e *Emitter) appendCampaigns(rows []Row, app *models.AppEntity, week *models.WeekBucket, campaigns []models.CampaignRecord) ([]Row, error) {
	for _, c := range campaigns {
		row := e.fill(Row{
			Level:     models.LevelCampaign,
			AppName:   app.AppName,
			WeekStart: week.WeekStart,
			Name:      c.CampaignName,
			ID:        c.CampaignID,
			Geo:       c.Geo,
		}, rollup.Of(c), initial.CampaignKey(app.AppName, week, c))
		row, err := e.withWoW(row, wow.CampaignKey(c.CampaignID), week.WeekStart)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Emitter) fill(row Row, r models.Rollup, key models.InitialKey) Row {
	row.Spend = r.TotalSpend
	row.Installs = r.TotalInstalls
	row.CPI = r.AvgCPI
	row.ROAS = roasString(e.horizons, r)
	row.IPM = r.AvgIPM
	row.Retention = retentionString(r)
	row.EArpu = r.AvgArpu
	row.ERoas365 = r.AvgERoas
	row.ERoas730 = r.AvgEROASD730
	row.EProfit730 = r.TotalProfit
	row.ERoas730Trend = e.tracker.Format(key, r.AvgEROASD730, models.MetricEROAS)
	row.EProfit730Trend = e.tracker.Format(key, r.TotalProfit, models.MetricProfit)
	return row
}

func (e *Emitter) withWoW(row Row, key wow.EntityKey, weekStart string) (Row, error) {
	res, err := e.results.Get(key, weekStart)
	if err != nil {
		return row, fmt.Errorf("emit %s row %q: %w", row.Level, row.Name, err)
	}
	spend, profit := res.SpendChangePercent, res.EProfitChangePercent
	row.SpendChange = &spend
	row.ProfitChange = &profit
	row.GrowthStatus = res.GrowthStatus
	return row, nil
}
