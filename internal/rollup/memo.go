package rollup

import "github.com/radiusdt/growth-report/internal/models"

// Key identifies one memoized rollup. Unused parts stay empty: an app rollup
// has no WeekStart, a week rollup has no GroupID.
type Key struct {
	Level     models.Level
	AppID     string
	WeekStart string
	GroupID   string
}

// Memo caches rollups for the lifetime of one report run. It is not safe
// for concurrent use and must not be shared between runs.
type Memo struct {
	calc   Calculator
	table  map[Key]models.Rollup
	hits   int
	misses int
}

// NewMemo returns an empty memo table backed by calc.
func NewMemo(calc Calculator) *Memo {
	return &Memo{calc: calc, table: make(map[Key]models.Rollup)}
}

func (m *Memo) get(key Key, campaigns func() []models.CampaignRecord) models.Rollup {
	if r, ok := m.table[key]; ok {
		m.hits++
		return r
	}
	m.misses++
	r := m.calc.WeekTotals(campaigns())
	m.table[key] = r
	return r
}

// App returns the rollup over every week of the app.
func (m *Memo) App(app *models.AppEntity) models.Rollup {
	return m.get(Key{Level: models.LevelApp, AppID: app.AppID}, func() []models.CampaignRecord {
		var all []models.CampaignRecord
		for _, w := range app.SortedWeeks() {
			all = append(all, w.AllCampaigns()...)
		}
		return all
	})
}

// Week returns the rollup of one app week.
func (m *Memo) Week(app *models.AppEntity, week *models.WeekBucket) models.Rollup {
	key := Key{Level: models.LevelWeek, AppID: app.AppID, WeekStart: week.WeekStart}
	return m.get(key, week.AllCampaigns)
}

// Group returns the rollup of one group of an app week.
func (m *Memo) Group(app *models.AppEntity, week *models.WeekBucket, g *models.Group) models.Rollup {
	key := Key{Level: g.Level, AppID: app.AppID, WeekStart: week.WeekStart, GroupID: g.ID}
	return m.get(key, func() []models.CampaignRecord { return g.Campaigns })
}

// Len returns the number of cached rollups.
func (m *Memo) Len() int { return len(m.table) }

// Stats returns cache hits and misses.
func (m *Memo) Stats() (hits, misses int) { return m.hits, m.misses }
