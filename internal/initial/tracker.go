// Package initial records the first closed-week eROAS D730 and profit of
// every entity week and renders "initial → current" strings.
package initial

import (
	"context"
	"fmt"

	"github.com/radiusdt/growth-report/internal/format"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/rollup"
	"github.com/radiusdt/growth-report/internal/storage"
	"github.com/radiusdt/growth-report/internal/weeks"
	"go.uber.org/zap"
)

// Stats summarizes one recording pass.
type Stats struct {
	Inserted   int `json:"inserted"`
	Backfilled int `json:"backfilled"`
	// NotRecordable counts entity weeks skipped because the week is open
	// or still settling.
	NotRecordable int `json:"not_recordable"`
}

// Tracker records initial values for one project during one run. It keeps
// a snapshot of the store and is not meant to outlive the run.
type Tracker struct {
	store            storage.InitialValueStore
	project          string
	window           weeks.Window
	recordZeroProfit bool
	logger           *zap.Logger

	loaded bool
	cache  map[models.InitialKey]models.InitialValueRecord
}

// New returns a tracker for cfg's project.
func New(store storage.InitialValueStore, cfg project.Config, window weeks.Window, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:            store,
		project:          cfg.Name,
		window:           window,
		recordZeroProfit: cfg.RecordZeroProfit,
		logger:           logger,
		cache:            make(map[models.InitialKey]models.InitialValueRecord),
	}
}

// Preload reads every stored record of the project.
func (t *Tracker) Preload(ctx context.Context) error {
	recs, err := t.store.Load(ctx, t.project)
	if err != nil {
		return fmt.Errorf("load initial values: %w", err)
	}
	for _, rec := range recs {
		t.cache[rec.InitialKey] = rec
	}
	t.loaded = true
	return nil
}

// validEROAS reports whether v may be stored as an initial eROAS.
func validEROAS(v float64) bool { return v > 0 }

// validProfit reports whether v may be stored as an initial profit. An exact
// zero means "no data yet" unless the project opts in.
func (t *Tracker) validProfit(v float64) bool {
	return v != 0 || t.recordZeroProfit
}

// Record stores the values of one entity week when the week is recordable.
// Existing non-null values are never replaced; null ones are backfilled.
func (t *Tracker) Record(ctx context.Context, weekStart string, key models.InitialKey, eroas, profit float64, stats *Stats) error {
	if !t.window.RecordableStart(weekStart) {
		stats.NotRecordable++
		return nil
	}
	eOK, pOK := validEROAS(eroas), t.validProfit(profit)
	if !eOK && !pOK {
		return nil
	}

	existing, found := t.cache[key]
	if !found {
		rec := models.InitialValueRecord{InitialKey: key, DateRecorded: t.window.Now}
		if eOK {
			rec.InitialEROAS = &eroas
		}
		if pOK {
			rec.InitialProfit = &profit
		}
		inserted, err := t.store.InsertIfAbsent(ctx, t.project, rec)
		if err != nil {
			return fmt.Errorf("record %s %s %s: %w", key.Level, key.AppName, key.WeekRange, err)
		}
		if inserted {
			t.cache[key] = rec
			stats.Inserted++
			return nil
		}
		// written by someone else since the snapshot was taken
		got, err := t.store.Get(ctx, t.project, key)
		if err != nil {
			return fmt.Errorf("reload %s %s %s: %w", key.Level, key.AppName, key.WeekRange, err)
		}
		if got == nil {
			return nil
		}
		existing = *got
	}

	if existing.InitialEROAS == nil && eOK {
		if err := t.backfill(ctx, &existing, models.MetricEROAS, eroas, stats); err != nil {
			return err
		}
	}
	if existing.InitialProfit == nil && pOK {
		if err := t.backfill(ctx, &existing, models.MetricProfit, profit, stats); err != nil {
			return err
		}
	}
	t.cache[key] = existing
	return nil
}

// backfill fills one null metric of rec. When another writer filled it
// first, rec takes the stored value instead.
func (t *Tracker) backfill(ctx context.Context, rec *models.InitialValueRecord, metric models.InitialMetric, value float64, stats *Stats) error {
	key := rec.InitialKey
	ok, err := t.store.BackfillIfNull(ctx, t.project, key, metric, value)
	if err != nil {
		return fmt.Errorf("backfill %s %s %s: %w", metric, key.AppName, key.WeekRange, err)
	}
	if ok {
		setMetric(rec, metric, value)
		stats.Backfilled++
		return nil
	}

	got, err := t.store.Get(ctx, t.project, key)
	if err != nil {
		return fmt.Errorf("reload %s %s %s: %w", key.Level, key.AppName, key.WeekRange, err)
	}
	if got != nil {
		if v := got.Value(metric); v != nil {
			setMetric(rec, metric, *v)
		}
	}
	return nil
}

func setMetric(rec *models.InitialValueRecord, metric models.InitialMetric, v float64) {
	if metric == models.MetricProfit {
		rec.InitialProfit = &v
		return
	}
	rec.InitialEROAS = &v
}

// RecordFromTree records every week, group and campaign of the tree. It is
// idempotent: a second pass over the same tree writes nothing.
func (t *Tracker) RecordFromTree(ctx context.Context, tree *models.Tree, memo *rollup.Memo) (Stats, error) {
	var stats Stats
	if !t.loaded {
		if err := t.Preload(ctx); err != nil {
			return stats, err
		}
	}
	for _, app := range tree.SortedApps() {
		for _, week := range app.SortedWeeks() {
			wr := memo.Week(app, week)
			if err := t.Record(ctx, week.WeekStart, WeekKey(app.AppName, week), wr.AvgEROASD730, wr.TotalProfit, &stats); err != nil {
				return stats, err
			}
			if week.Shape == models.ShapeFlat {
				if err := t.recordCampaigns(ctx, app.AppName, week, week.Campaigns, &stats); err != nil {
					return stats, err
				}
				continue
			}
			for _, g := range week.GroupsByID() {
				gr := memo.Group(app, week, g)
				if err := t.Record(ctx, week.WeekStart, GroupKey(app.AppName, week, g), gr.AvgEROASD730, gr.TotalProfit, &stats); err != nil {
					return stats, err
				}
				if g.Level == models.LevelNetwork {
					continue
				}
				if err := t.recordCampaigns(ctx, app.AppName, week, g.Campaigns, &stats); err != nil {
					return stats, err
				}
			}
		}
	}
	t.logger.Debug("initial values recorded",
		zap.String("project", t.project),
		zap.Int("inserted", stats.Inserted),
		zap.Int("backfilled", stats.Backfilled),
		zap.Int("not_recordable", stats.NotRecordable),
	)
	return stats, nil
}

func (t *Tracker) recordCampaigns(ctx context.Context, appName string, week *models.WeekBucket, campaigns []models.CampaignRecord, stats *Stats) error {
	for _, c := range campaigns {
		if err := t.Record(ctx, week.WeekStart, CampaignKey(appName, week, c), c.ERoasForecastD730, c.EProfitForecast, stats); err != nil {
			return err
		}
	}
	return nil
}

// WeekKey is the key of an app week.
func WeekKey(appName string, week *models.WeekBucket) models.InitialKey {
	return models.InitialKey{Level: models.LevelWeek, AppName: appName, WeekRange: week.Range()}
}

// GroupKey is the key of a source app, network or country group.
func GroupKey(appName string, week *models.WeekBucket, g *models.Group) models.InitialKey {
	return models.InitialKey{Level: g.Level, AppName: appName, WeekRange: week.Range(), Identifier: g.ID}
}

// CampaignKey is the key of a campaign week.
func CampaignKey(appName string, week *models.WeekBucket, c models.CampaignRecord) models.InitialKey {
	return models.InitialKey{
		Level:      models.LevelCampaign,
		AppName:    appName,
		WeekRange:  week.Range(),
		Identifier: c.CampaignID,
		SourceApp:  c.SourceApp,
	}
}

// Format renders "initial → current" for one metric, or "current → current"
// when nothing is stored. eROAS is shown as a percentage, profit as currency.
func (t *Tracker) Format(key models.InitialKey, current float64, metric models.InitialMetric) string {
	render := func(v float64) string {
		if metric == models.MetricProfit {
			return format.Currency(v)
		}
		return format.Percent(v, 0)
	}
	cur := render(current)
	if rec, ok := t.cache[key]; ok {
		if v := rec.Value(metric); v != nil {
			return render(*v) + format.Arrow + cur
		}
	}
	return cur + format.Arrow + cur
}
