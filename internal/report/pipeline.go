// Package report turns raw analytics rows into the weekly growth table and
// runs report builds end to end.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/growth-report/internal/aggregate"
	"github.com/radiusdt/growth-report/internal/initial"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/normalize"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/rollup"
	"github.com/radiusdt/growth-report/internal/storage"
	"github.com/radiusdt/growth-report/internal/weeks"
	"github.com/radiusdt/growth-report/internal/wow"
	"go.uber.org/zap"
)

// Stats summarizes one run.
type Stats struct {
	Rows       normalize.Stats             `json:"rows"`
	Apps       int                         `json:"apps"`
	Weeks      int                         `json:"weeks"`
	Campaigns  int                         `json:"campaigns"`
	Lineages   int                         `json:"lineages"`
	Initial    initial.Stats               `json:"initial_values"`
	Statuses   map[models.GrowthStatus]int `json:"growth_statuses"`
	RollupHits int                         `json:"rollup_cache_hits"`
}

// Report is the result of one successful run. A report without rows means
// no data for the period, not a failure.
type Report struct {
	RunID           string       `json:"run_id"`
	Project         string       `json:"project"`
	Title           string       `json:"title"`
	GeneratedAt     time.Time    `json:"generated_at"`
	IncludeLastWeek bool         `json:"include_last_week"`
	Columns         []string     `json:"columns"`
	ROASHorizons    string       `json:"roas_horizons"`
	Rows            []Row        `json:"rows"`
	Stats           Stats        `json:"stats"`
	Tree            *models.Tree `json:"-"`
}

// Empty reports whether the run found no data.
func (r *Report) Empty() bool {
	return len(r.Rows) == 0
}

// Pipeline runs the in-memory stages for one project:
// normalize, build, rollup, week-over-week, initial values, emit.
type Pipeline struct {
	cfg    project.Config
	store  storage.InitialValueStore
	logger *zap.Logger
}

// NewPipeline returns a pipeline for cfg recording initial values in store.
func NewPipeline(cfg project.Config, store storage.InitialValueStore, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger}
}

// Run processes rows. All state lives in the call, so runs for different
// projects may execute concurrently. On error no rows are returned.
func (p *Pipeline) Run(ctx context.Context, rows []models.RawRow, apps models.AppsIndex, window weeks.Window) (*Report, error) {
	norm, err := normalize.New(p.cfg, window, apps, p.logger)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.cfg.Name, err)
	}
	records, rowStats := norm.NormalizeAll(rows)

	tree, err := aggregate.Build(p.cfg.Shape, records)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	if err := aggregate.Check(tree); err != nil {
		return nil, err
	}

	memo := rollup.NewMemo(rollup.New(p.cfg.Forecast))
	series := wow.SeriesFromTree(tree, memo)
	results := wow.Compute(series, p.cfg.Thresholds)

	tracker := initial.New(p.store, p.cfg, window, p.logger)
	initStats, err := tracker.RecordFromTree(ctx, tree, memo)
	if err != nil {
		return nil, fmt.Errorf("record initial values: %w", err)
	}

	horizons := Horizons(p.cfg.Offsets)
	out, err := NewEmitter(horizons, memo, results, tracker).Emit(tree)
	if err != nil {
		return nil, err
	}

	hits, _ := memo.Stats()
	rep := &Report{
		Project:         p.cfg.Name,
		Title:           p.cfg.Title(),
		GeneratedAt:     window.Now,
		IncludeLastWeek: window.IncludeLastWeek,
		Columns:         Columns,
		ROASHorizons:    HorizonLabel(horizons),
		Rows:            out,
		Tree:            tree,
		Stats: Stats{
			Rows:       rowStats,
			Apps:       len(tree.Apps),
			Weeks:      countWeeks(tree),
			Campaigns:  tree.CampaignCount(),
			Lineages:   series.Len(),
			Initial:    initStats,
			Statuses:   results.Counts(),
			RollupHits: hits,
		},
	}
	return rep, nil
}

func countWeeks(tree *models.Tree) int {
	n := 0
	for _, app := range tree.Apps {
		n += len(app.Weeks)
	}
	return n
}

// Snapshots converts the report's rows into archive records.
func Snapshots(rep *Report) []models.Snapshot {
	out := make([]models.Snapshot, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		s := models.Snapshot{
			RunID:        rep.RunID,
			Project:      rep.Project,
			GeneratedAt:  rep.GeneratedAt,
			Level:        r.Level,
			AppName:      r.AppName,
			WeekStart:    r.WeekStart,
			Identifier:   r.ID,
			Name:         r.Name,
			Spend:        r.Spend,
			Installs:     r.Installs,
			Profit:       r.EProfit730,
			EROASD730:    r.ERoas730,
			GrowthStatus: r.GrowthStatus,
		}
		if r.SpendChange != nil {
			s.SpendChange = *r.SpendChange
		}
		if r.ProfitChange != nil {
			s.ProfitChange = *r.ProfitChange
		}
		out = append(out, s)
	}
	return out
}
