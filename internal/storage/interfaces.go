package storage

import (
	"context"
	"errors"

	"github.com/radiusdt/growth-report/internal/models"
)

// ErrEmptyKey is returned for an initial-value key without level, app or week.
var ErrEmptyKey = errors.New("initial value key is incomplete")

// =============================================
// INITIAL VALUE STORE
// =============================================

// InitialValueStore persists the first observed closed-week metrics of an
// entity week, one logical table per project. Implementations must never
// overwrite a non-null stored value.
type InitialValueStore interface {
	// Load returns every record of the project.
	Load(ctx context.Context, project string) ([]models.InitialValueRecord, error)
	// Get returns the record for key, or nil when absent.
	Get(ctx context.Context, project string, key models.InitialKey) (*models.InitialValueRecord, error)
	// InsertIfAbsent creates the record when its key does not exist yet and
	// reports whether it did.
	InsertIfAbsent(ctx context.Context, project string, rec models.InitialValueRecord) (bool, error)
	// BackfillIfNull sets one metric of an existing record when the stored
	// value is null and reports whether it did.
	BackfillIfNull(ctx context.Context, project string, key models.InitialKey, metric models.InitialMetric, value float64) (bool, error)
}

// =============================================
// APPS DATABASE
// =============================================

// AppsDirectory is the bundle id → publisher/app name lookup.
type AppsDirectory interface {
	Load(ctx context.Context) (models.AppsIndex, error)
}

// =============================================
// SNAPSHOT ARCHIVE
// =============================================

// SnapshotSink archives the rows of successful runs.
type SnapshotSink interface {
	Archive(ctx context.Context, snapshots []models.Snapshot) error
}

func checkKey(key models.InitialKey) error {
	if key.Level == "" || key.AppName == "" || key.WeekRange == "" {
		return ErrEmptyKey
	}
	return nil
}
