package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radiusdt/growth-report/internal/models"
)

// InMemoryInitialStore keeps initial values in memory. It is used in
// development and tests.
type InMemoryInitialStore struct {
	mu       sync.RWMutex
	projects map[string]map[models.InitialKey]*models.InitialValueRecord
	now      func() time.Time
}

func NewInMemoryInitialStore() *InMemoryInitialStore {
	return &InMemoryInitialStore{
		projects: make(map[string]map[models.InitialKey]*models.InitialValueRecord),
		now:      time.Now,
	}
}

func (s *InMemoryInitialStore) Load(_ context.Context, project string) ([]models.InitialValueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.InitialValueRecord, 0, len(s.projects[project]))
	for _, rec := range s.projects[project] {
		res = append(res, copyRecord(rec))
	}
	sortRecords(res)
	return res, nil
}

func (s *InMemoryInitialStore) Get(_ context.Context, project string, key models.InitialKey) (*models.InitialValueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.projects[project][key]; ok {
		cp := copyRecord(rec)
		return &cp, nil
	}
	return nil, nil
}

func (s *InMemoryInitialStore) InsertIfAbsent(_ context.Context, project string, rec models.InitialValueRecord) (bool, error) {
	if err := checkKey(rec.InitialKey); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.projects[project]
	if !ok {
		table = make(map[models.InitialKey]*models.InitialValueRecord)
		s.projects[project] = table
	}
	if _, exists := table[rec.InitialKey]; exists {
		return false, nil
	}
	cp := copyRecord(&rec)
	if cp.DateRecorded.IsZero() {
		cp.DateRecorded = s.now()
	}
	table[rec.InitialKey] = &cp
	return true, nil
}

func (s *InMemoryInitialStore) BackfillIfNull(_ context.Context, project string, key models.InitialKey, metric models.InitialMetric, value float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.projects[project][key]
	if !ok {
		return false, nil
	}
	v := value
	switch metric {
	case models.MetricEROAS:
		if rec.InitialEROAS != nil {
			return false, nil
		}
		rec.InitialEROAS = &v
	case models.MetricProfit:
		if rec.InitialProfit != nil {
			return false, nil
		}
		rec.InitialProfit = &v
	default:
		return false, nil
	}
	return true, nil
}

func copyRecord(rec *models.InitialValueRecord) models.InitialValueRecord {
	cp := *rec
	if rec.InitialEROAS != nil {
		v := *rec.InitialEROAS
		cp.InitialEROAS = &v
	}
	if rec.InitialProfit != nil {
		v := *rec.InitialProfit
		cp.InitialProfit = &v
	}
	return cp
}

func sortRecords(recs []models.InitialValueRecord) {
	sort.Slice(recs, func(i, j int) bool { return lessKey(recs[i].InitialKey, recs[j].InitialKey) })
}

func lessKey(a, b models.InitialKey) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	if a.AppName != b.AppName {
		return a.AppName < b.AppName
	}
	if a.WeekRange != b.WeekRange {
		return a.WeekRange < b.WeekRange
	}
	if a.Identifier != b.Identifier {
		return a.Identifier < b.Identifier
	}
	return a.SourceApp < b.SourceApp
}

// StaticAppsDirectory serves a fixed Apps Database.
type StaticAppsDirectory struct {
	Apps models.AppsIndex
}

func (d StaticAppsDirectory) Load(context.Context) (models.AppsIndex, error) {
	out := make(models.AppsIndex, len(d.Apps))
	for k, v := range d.Apps {
		out[k] = v
	}
	return out, nil
}

// InMemorySnapshotSink collects archived snapshots.
type InMemorySnapshotSink struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
}

func NewInMemorySnapshotSink() *InMemorySnapshotSink {
	return &InMemorySnapshotSink{}
}

func (s *InMemorySnapshotSink) Archive(_ context.Context, snapshots []models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshots...)
	return nil
}

// Snapshots returns everything archived so far.
func (s *InMemorySnapshotSink) Snapshots() []models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Snapshot(nil), s.snapshots...)
}
