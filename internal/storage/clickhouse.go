package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/weeks"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ClickHouseSnapshotSink archives run snapshots into a MergeTree table.
type ClickHouseSnapshotSink struct {
	conn  driver.Conn
	table string
}

func NewClickHouseSnapshotSink(conn driver.Conn, table string) (*ClickHouseSnapshotSink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", table)
	}
	return &ClickHouseSnapshotSink{conn: conn, table: table}, nil
}

// EnsureSchema creates the snapshot table when missing.
func (s *ClickHouseSnapshotSink) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			run_id        String,
			project       LowCardinality(String),
			generated_at  DateTime,
			level         LowCardinality(String),
			app_name      String,
			week_start    Date,
			identifier    String,
			name          String,
			spend         Float64,
			installs      Float64,
			profit        Float64,
			eroas_d730    Float64,
			spend_change  Float64,
			profit_change Float64,
			growth_status LowCardinality(String)
		) ENGINE = MergeTree
		ORDER BY (project, week_start, level, app_name, identifier, generated_at)`
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

func (s *ClickHouseSnapshotSink) Archive(ctx context.Context, snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}
	for _, sn := range snapshots {
		week, err := parseWeekStart(sn.WeekStart)
		if err != nil {
			_ = batch.Abort()
			return err
		}
		if err := batch.Append(
			sn.RunID, sn.Project, sn.GeneratedAt, string(sn.Level), sn.AppName, week,
			sn.Identifier, sn.Name, sn.Spend, sn.Installs, sn.Profit, sn.EROASD730,
			sn.SpendChange, sn.ProfitChange, string(sn.GrowthStatus),
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append snapshot: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send snapshot batch: %w", err)
	}
	return nil
}

// parseWeekStart maps an ISO week start to a Date. App-level snapshots span
// every week and carry the epoch.
func parseWeekStart(s string) (time.Time, error) {
	if s == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(weeks.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot week %q: %w", s, err)
	}
	return t, nil
}
