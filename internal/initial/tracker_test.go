package initial

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/growth-report/internal/aggregate"
	"github.com/radiusdt/growth-report/internal/format"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/rollup"
	"github.com/radiusdt/growth-report/internal/storage"
	"github.com/radiusdt/growth-report/internal/weeks"
)

var (
	wednesday = time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	monday    = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg       = project.Config{Name: "REGULAR", Shape: models.ShapeFlat}
)

const (
	closedWeek = "2024-01-01"
	lastWeek   = "2024-01-08"
	thisWeek   = "2024-01-15"
)

func key(week string) models.InitialKey {
	w := &models.WeekBucket{WeekStart: week, WeekEnd: week}
	return CampaignKey("App", w, models.CampaignRecord{CampaignID: "c1", SourceApp: "src"})
}

func newTracker(t *testing.T, store storage.InitialValueStore, c project.Config, now time.Time, include *bool) *Tracker {
	t.Helper()
	tr := New(store, c, weeks.NewWindow(now, include), nil)
	if err := tr.Preload(context.Background()); err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	var stats Stats

	first := newTracker(t, store, cfg, wednesday, nil)
	if err := first.Record(ctx, closedWeek, key(closedWeek), 150, 0, &stats); err != nil {
		t.Fatal(err)
	}
	// a later run with a revised forecast
	second := newTracker(t, store, cfg, wednesday, nil)
	if err := second.Record(ctx, closedWeek, key(closedWeek), 999, 0, &stats); err != nil {
		t.Fatal(err)
	}

	rec, _ := store.Get(ctx, cfg.Name, key(closedWeek))
	if rec == nil || *rec.InitialEROAS != 150 {
		t.Fatalf("stored = %+v", rec)
	}
	if rec.InitialProfit != nil {
		t.Errorf("zero profit recorded: %v", *rec.InitialProfit)
	}
	if stats.Inserted != 1 || stats.Backfilled != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	var stats Stats

	tr := newTracker(t, store, cfg, wednesday, nil)
	_ = tr.Record(ctx, closedWeek, key(closedWeek), 150, 0, &stats)
	_ = tr.Record(ctx, closedWeek, key(closedWeek), 160, 42, &stats)
	_ = tr.Record(ctx, closedWeek, key(closedWeek), 170, 99, &stats)

	rec, _ := store.Get(ctx, cfg.Name, key(closedWeek))
	if *rec.InitialEROAS != 150 || rec.InitialProfit == nil || *rec.InitialProfit != 42 {
		t.Fatalf("stored = %v / %v", *rec.InitialEROAS, rec.InitialProfit)
	}
	if stats.Inserted != 1 || stats.Backfilled != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBackfillAfterConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	tr := newTracker(t, store, cfg, wednesday, nil)

	// another run inserts after this tracker took its snapshot
	eroas := 120.0
	_, _ = store.InsertIfAbsent(ctx, cfg.Name, models.InitialValueRecord{InitialKey: key(closedWeek), InitialEROAS: &eroas})

	var stats Stats
	if err := tr.Record(ctx, closedWeek, key(closedWeek), 150, -7, &stats); err != nil {
		t.Fatal(err)
	}
	rec, _ := store.Get(ctx, cfg.Name, key(closedWeek))
	if *rec.InitialEROAS != 120 || *rec.InitialProfit != -7 {
		t.Errorf("stored = %v / %v", *rec.InitialEROAS, *rec.InitialProfit)
	}
	if stats.Inserted != 0 || stats.Backfilled != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// lateWriterStore fills a null metric with its own value right before the
// tracker's backfill, as a concurrent run would.
type lateWriterStore struct {
	*storage.InMemoryInitialStore
	value float64
}

func (s lateWriterStore) BackfillIfNull(ctx context.Context, project string, key models.InitialKey, metric models.InitialMetric, value float64) (bool, error) {
	if _, err := s.InMemoryInitialStore.BackfillIfNull(ctx, project, key, metric, s.value); err != nil {
		return false, err
	}
	return s.InMemoryInitialStore.BackfillIfNull(ctx, project, key, metric, value)
}

func TestBackfillLostToOtherWriter(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewInMemoryInitialStore()
	eroas := 120.0
	_, _ = mem.InsertIfAbsent(ctx, cfg.Name, models.InitialValueRecord{InitialKey: key(closedWeek), InitialEROAS: &eroas})

	tr := newTracker(t, lateWriterStore{InMemoryInitialStore: mem, value: -7}, cfg, wednesday, nil)
	var stats Stats
	if err := tr.Record(ctx, closedWeek, key(closedWeek), 150, 50, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Backfilled != 0 {
		t.Errorf("stats = %+v", stats)
	}
	want := format.Currency(-7) + format.Arrow + format.Currency(50)
	if got := tr.Format(key(closedWeek), 50, models.MetricProfit); got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestEligibility(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name    string
		now     time.Time
		include *bool
		week    string
		want    bool
	}{
		{"closed week", wednesday, nil, closedWeek, true},
		{"last week midweek", wednesday, nil, lastWeek, true},
		{"last week midweek excluded by caller", wednesday, &no, lastWeek, true},
		{"last week on monday", monday, nil, lastWeek, false},
		{"last week on monday included by caller", monday, &yes, lastWeek, false},
		{"current week", wednesday, &yes, thisWeek, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewInMemoryInitialStore()
			tr := newTracker(t, store, cfg, tt.now, tt.include)
			var stats Stats
			if err := tr.Record(ctx, tt.week, key(tt.week), 150, 10, &stats); err != nil {
				t.Fatal(err)
			}
			rec, _ := store.Get(ctx, cfg.Name, key(tt.week))
			if got := rec != nil; got != tt.want {
				t.Errorf("recorded = %v, want %v", got, tt.want)
			}
			if !tt.want && stats.NotRecordable != 1 {
				t.Errorf("stats = %+v", stats)
			}
		})
	}
}

func TestValidity(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	tr := newTracker(t, store, cfg, wednesday, nil)
	var stats Stats

	_ = tr.Record(ctx, closedWeek, key(closedWeek), 0, 0, &stats)
	_ = tr.Record(ctx, closedWeek, key(closedWeek), -5, 0, &stats)
	if rec, _ := store.Get(ctx, cfg.Name, key(closedWeek)); rec != nil {
		t.Fatalf("nothing valid, but stored %+v", rec)
	}

	_ = tr.Record(ctx, closedWeek, key(closedWeek), 0, -25, &stats)
	rec, _ := store.Get(ctx, cfg.Name, key(closedWeek))
	if rec == nil || rec.InitialEROAS != nil || *rec.InitialProfit != -25 {
		t.Fatalf("negative profit = %+v", rec)
	}
}

func TestRecordZeroProfitOptIn(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	c := cfg
	c.RecordZeroProfit = true
	tr := newTracker(t, store, c, wednesday, nil)
	var stats Stats
	_ = tr.Record(ctx, closedWeek, key(closedWeek), 0, 0, &stats)
	rec, _ := store.Get(ctx, c.Name, key(closedWeek))
	if rec == nil || rec.InitialProfit == nil || *rec.InitialProfit != 0 {
		t.Fatalf("zero profit opt-in = %+v", rec)
	}
}

func sampleTree(t *testing.T, shape models.Shape) *models.Tree {
	t.Helper()
	mk := func(week, id, src string, spend, eroas, profit float64) models.CampaignRecord {
		return models.CampaignRecord{
			App:        models.AppInfo{ID: "app-1", Name: "App"},
			CampaignID: id, CampaignName: id,
			WeekStart: week, WeekEnd: weeks.End(mustDate(t, week)),
			SourceApp: src, SourceAppID: src,
			Spend: spend, ERoasForecastD730: eroas, EProfitForecast: profit,
		}
	}
	tree, err := aggregate.Build(shape, []models.CampaignRecord{
		mk(closedWeek, "c1", "s1", 100, 150, 20),
		mk(closedWeek, "c2", "s2", 50, 0, 0),
		mk(lastWeek, "c1", "s1", 80, 140, 12),
		mk(thisWeek, "c1", "s1", 10, 100, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(weeks.DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRecordFromTreeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	tree := sampleTree(t, models.ShapeSourceApp)
	memo := rollup.NewMemo(rollup.New(project.DefaultForecastBounds))

	tr := New(store, cfg, weeks.NewWindow(wednesday, nil), nil)
	stats, err := tr.RecordFromTree(ctx, tree, memo)
	if err != nil {
		t.Fatal(err)
	}
	// closed week: WEEK + s1 + c1 (s2 and c2 have nothing valid);
	// last week: WEEK + s1 + c1; this week: 3 not recordable
	if stats.Inserted != 6 || stats.NotRecordable != 3 {
		t.Errorf("first pass = %+v", stats)
	}

	again := New(store, cfg, weeks.NewWindow(wednesday, nil), nil)
	stats, err = again.RecordFromTree(ctx, tree, memo)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Inserted != 0 || stats.Backfilled != 0 {
		t.Errorf("second pass = %+v", stats)
	}

	week := tree.Apps["app-1"].Weeks[closedWeek]
	rec, _ := store.Get(ctx, cfg.Name, GroupKey("App", week, week.Groups["s1"]))
	if rec == nil || *rec.InitialEROAS != 150 || *rec.InitialProfit != 20 {
		t.Errorf("group record = %+v", rec)
	}
	if rec.Identifier != "s1" || rec.Level != models.LevelSourceApp || rec.WeekRange != "2024-01-01 - 2024-01-07" {
		t.Errorf("group key = %+v", rec.InitialKey)
	}
}

func TestFormat(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryInitialStore()
	tr := newTracker(t, store, cfg, wednesday, nil)
	var stats Stats
	_ = tr.Record(ctx, closedWeek, key(closedWeek), 150, 0, &stats)

	if got := tr.Format(key(closedWeek), 162.4, models.MetricEROAS); got != "150% → 162%" {
		t.Errorf("eroas = %q", got)
	}
	if got := tr.Format(key(closedWeek), 55, models.MetricProfit); got != "$55.00 → $55.00" {
		t.Errorf("profit without initial = %q", got)
	}
	if got := tr.Format(key(lastWeek), 1234.5, models.MetricProfit); got != "$1,234.50 → $1,234.50" {
		t.Errorf("unknown key = %q", got)
	}
}
