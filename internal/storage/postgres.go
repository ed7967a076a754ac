package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/growth-report/internal/database"
	"github.com/radiusdt/growth-report/internal/models"
)

// InitialMetricsMigrations create and evolve the initial_metrics table.
// They are applied by database.PostgresDB.Migrate before the store is used.
var InitialMetricsMigrations = []database.Migration{
	{
		Name: "0001_initial_metrics",
		SQL: `
	CREATE TABLE IF NOT EXISTS initial_metrics (
		project        TEXT NOT NULL,
		level          TEXT NOT NULL,
		app_name       TEXT NOT NULL,
		week_range     TEXT NOT NULL,
		identifier     TEXT NOT NULL DEFAULT '',
		source_app     TEXT NOT NULL DEFAULT '',
		initial_eroas  DOUBLE PRECISION,
		initial_profit DOUBLE PRECISION,
		date_recorded  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (project, level, app_name, week_range, identifier, source_app)
	)`,
	},
	{
		Name: "0002_initial_metrics_project_idx",
		SQL:  `CREATE INDEX IF NOT EXISTS initial_metrics_project_idx ON initial_metrics (project, week_range)`,
	},
}

// PostgresInitialStore implements InitialValueStore using PostgreSQL. The
// write-once rule is enforced by the statements themselves.
type PostgresInitialStore struct {
	pool *pgxpool.Pool
}

func NewPostgresInitialStore(pool *pgxpool.Pool) *PostgresInitialStore {
	return &PostgresInitialStore{pool: pool}
}

func (s *PostgresInitialStore) Load(ctx context.Context, project string) ([]models.InitialValueRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT level, app_name, week_range, identifier, source_app,
		       initial_eroas, initial_profit, date_recorded
		FROM initial_metrics WHERE project = $1
		ORDER BY level, app_name, week_range, identifier, source_app
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial metrics: %w", err)
	}
	defer rows.Close()

	var res []models.InitialValueRecord
	for rows.Next() {
		rec, err := scanInitial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan initial metric: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *PostgresInitialStore) Get(ctx context.Context, project string, key models.InitialKey) (*models.InitialValueRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT level, app_name, week_range, identifier, source_app,
		       initial_eroas, initial_profit, date_recorded
		FROM initial_metrics
		WHERE project = $1 AND level = $2 AND app_name = $3 AND week_range = $4
		  AND identifier = $5 AND source_app = $6
	`, project, string(key.Level), key.AppName, key.WeekRange, key.Identifier, key.SourceApp)

	rec, err := scanInitial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get initial metric: %w", err)
	}
	return &rec, nil
}

func (s *PostgresInitialStore) InsertIfAbsent(ctx context.Context, project string, rec models.InitialValueRecord) (bool, error) {
	if err := checkKey(rec.InitialKey); err != nil {
		return false, err
	}
	recorded := rec.DateRecorded
	if recorded.IsZero() {
		recorded = time.Now()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO initial_metrics
			(project, level, app_name, week_range, identifier, source_app,
			 initial_eroas, initial_profit, date_recorded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`, project, string(rec.Level), rec.AppName, rec.WeekRange, rec.Identifier, rec.SourceApp,
		rec.InitialEROAS, rec.InitialProfit, recorded)
	if err != nil {
		return false, fmt.Errorf("failed to insert initial metric: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresInitialStore) BackfillIfNull(ctx context.Context, project string, key models.InitialKey, metric models.InitialMetric, value float64) (bool, error) {
	column, err := metricColumn(metric)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE initial_metrics SET `+column+` = $7
		WHERE project = $1 AND level = $2 AND app_name = $3 AND week_range = $4
		  AND identifier = $5 AND source_app = $6 AND `+column+` IS NULL
	`, project, string(key.Level), key.AppName, key.WeekRange, key.Identifier, key.SourceApp, value)
	if err != nil {
		return false, fmt.Errorf("failed to backfill %s: %w", column, err)
	}
	return tag.RowsAffected() == 1, nil
}

func metricColumn(metric models.InitialMetric) (string, error) {
	switch metric {
	case models.MetricEROAS:
		return "initial_eroas", nil
	case models.MetricProfit:
		return "initial_profit", nil
	}
	return "", fmt.Errorf("unknown initial metric %q", metric)
}

func scanInitial(row pgx.Row) (models.InitialValueRecord, error) {
	var (
		rec   models.InitialValueRecord
		level string
	)
	err := row.Scan(&level, &rec.AppName, &rec.WeekRange, &rec.Identifier, &rec.SourceApp,
		&rec.InitialEROAS, &rec.InitialProfit, &rec.DateRecorded)
	rec.Level = models.Level(level)
	return rec, err
}
