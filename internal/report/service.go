package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/growth-report/internal/metrics"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/storage"
	"github.com/radiusdt/growth-report/internal/weeks"
	"go.uber.org/zap"
)

// ErrProjectDisabled is returned for projects the service does not serve.
var ErrProjectDisabled = errors.New("project not enabled")

// RowSource fetches the raw rows of a project for the weeks starting
// between from and to, inclusive.
type RowSource interface {
	FetchRows(ctx context.Context, cfg project.Config, from, to time.Time) ([]models.RawRow, error)
}

// Options tune one report build.
type Options struct {
	// IncludeLastWeek overrides the weekday rule for the last completed week.
	IncludeLastWeek *bool
	// Now pins the clock; zero means time.Now.
	Now time.Time
}

// Deps are the collaborators of a Service. Apps, Sink and Metrics may be nil.
type Deps struct {
	Projects *project.Registry
	Source   RowSource
	Store    storage.InitialValueStore
	Apps     storage.AppsDirectory
	Sink     storage.SnapshotSink
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Service builds reports end to end: apps directory, fetch, pipeline,
// archive.
type Service struct {
	deps     Deps
	loc      *time.Location
	lookback int
	enabled  map[string]bool
	now      func() time.Time
}

// NewService returns a service fetching lookbackWeeks of history in loc.
// enabled restricts the served projects; empty serves every project.
func NewService(deps Deps, loc *time.Location, lookbackWeeks int, enabled []string) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{deps: deps, loc: loc, lookback: lookbackWeeks, now: time.Now}
	if len(enabled) > 0 {
		s.enabled = make(map[string]bool, len(enabled))
		for _, name := range enabled {
			s.enabled[strings.ToUpper(strings.TrimSpace(name))] = true
		}
	}
	return s
}

// Projects returns the names the service builds reports for.
func (s *Service) Projects() []string {
	var out []string
	for _, name := range s.deps.Projects.Names() {
		if s.enabled == nil || s.enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// Project returns the configuration of an enabled project.
func (s *Service) Project(name string) (project.Config, error) {
	cfg, err := s.deps.Projects.Get(name)
	if err != nil {
		return project.Config{}, err
	}
	if s.enabled != nil && !s.enabled[cfg.Name] {
		return project.Config{}, fmt.Errorf("%w: %s", ErrProjectDisabled, cfg.Name)
	}
	return cfg, nil
}

// Generate builds the report of one project. Any collaborator failure
// aborts the run; only the snapshot archive is best-effort.
func (s *Service) Generate(ctx context.Context, name string, opts Options) (rep *Report, err error) {
	cfg, err := s.Project(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := s.deps.Logger.With(zap.String("run_id", runID), zap.String("project", cfg.Name))
	defer func() {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordRun(cfg.Name, err, time.Since(start))
		}
		if err != nil {
			logger.Error("report run failed", zap.Error(err))
		}
	}()

	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}
	window := weeks.NewWindow(now.In(s.loc), opts.IncludeLastWeek)

	var apps models.AppsIndex
	if cfg.SourceApp.Kind == project.SourceAppBundle && s.deps.Apps != nil {
		if apps, err = s.deps.Apps.Load(ctx); err != nil {
			return nil, fmt.Errorf("load apps directory: %w", err)
		}
	}

	from := window.CurrentMonday.AddDate(0, 0, -7*s.lookback)
	to := window.CurrentMonday.AddDate(0, 0, -1)
	fetchStart := time.Now()
	rows, err := s.deps.Source.FetchRows(ctx, cfg, from, to)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordFetch(cfg.Name, err, time.Since(fetchStart))
	}
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}

	rep, err = NewPipeline(cfg, s.deps.Store, logger).Run(ctx, rows, apps, window)
	if err != nil {
		return nil, err
	}
	rep.RunID = runID

	if s.deps.Sink != nil && !rep.Empty() {
		snaps := Snapshots(rep)
		archiveErr := s.deps.Sink.Archive(ctx, snaps)
		if archiveErr != nil {
			logger.Warn("snapshot archive failed", zap.Error(archiveErr))
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordArchive(cfg.Name, len(snaps), archiveErr)
		}
	}

	s.record(cfg.Name, rep)
	logger.Info("report generated",
		zap.Int("rows_read", rep.Stats.Rows.Read),
		zap.Int("rows_kept", rep.Stats.Rows.Kept),
		zap.Any("rows_skipped", rep.Stats.Rows.Skipped),
		zap.Int("apps", rep.Stats.Apps),
		zap.Int("weeks", rep.Stats.Weeks),
		zap.Int("table_rows", len(rep.Rows)),
		zap.Int("initial_inserted", rep.Stats.Initial.Inserted),
		zap.Int("initial_backfilled", rep.Stats.Initial.Backfilled),
		zap.Duration("duration", time.Since(start)),
	)
	return rep, nil
}

func (s *Service) record(name string, rep *Report) {
	m := s.deps.Metrics
	if m == nil {
		return
	}
	m.RecordRows(name, rep.Stats.Rows.Read, rep.Stats.Rows.Kept, rep.Stats.Rows.Skipped)
	statuses := make(map[string]int, len(rep.Stats.Statuses))
	for status, n := range rep.Stats.Statuses {
		statuses[string(status)] = n
	}
	m.RecordStatuses(name, statuses)
	m.RecordInitialValues(name, rep.Stats.Initial.Inserted, rep.Stats.Initial.Backfilled)
	m.SetReportRows(name, len(rep.Rows))
}
