// Package app wires configuration into a ready report service. Both the
// server and the CLI start from here.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/radiusdt/growth-report/internal/analytics"
	"github.com/radiusdt/growth-report/internal/config"
	"github.com/radiusdt/growth-report/internal/database"
	"github.com/radiusdt/growth-report/internal/httpserver"
	"github.com/radiusdt/growth-report/internal/metrics"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/report"
	"github.com/radiusdt/growth-report/internal/storage"
	"go.uber.org/zap"
)

// App holds the report service and the connections behind it.
type App struct {
	Reports *report.Service
	Metrics *metrics.Metrics
	Checks  map[string]httpserver.HealthCheck

	closers []func()
}

// New connects the configured backends. The initial-value backend is
// required; Redis for the apps directory and the ClickHouse archive are
// optional and only logged when unavailable. reg may be nil.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*App, error) {
	a := &App{Checks: make(map[string]httpserver.HealthCheck)}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	registry, err := loadProjects(cfg.Report.ProjectsFile)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Report.Location()
	if err != nil {
		return nil, fmt.Errorf("report timezone: %w", err)
	}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewMetrics(cfg.Metrics.Namespace, reg)
	}

	// Redis backs the apps directory and optionally the initial values
	var rdb *database.RedisDB
	if cfg.Report.InitialBackend == config.InitialBackendRedis || cfg.Redis.Addr != "" {
		rdb, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		switch {
		case err == nil:
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			a.Checks["redis"] = rdb.Health
		case cfg.Report.InitialBackend == config.InitialBackendRedis:
			return nil, err
		default:
			logger.Warn("Redis not available, apps directory disabled", zap.Error(err))
			rdb = nil
		}
	}

	store, err := a.initialStore(ctx, cfg, rdb, logger)
	if err != nil {
		return nil, err
	}

	var apps storage.AppsDirectory = storage.StaticAppsDirectory{}
	if rdb != nil {
		apps = storage.NewRedisAppsDirectory(rdb.Client, rdb.Key(cfg.Redis.AppsKey), logger)
	}

	var sink storage.SnapshotSink
	if cfg.ClickHouse.Enabled {
		sink = a.snapshotSink(ctx, cfg.ClickHouse, logger)
	}

	a.Reports = report.NewService(report.Deps{
		Projects: registry,
		Source:   analytics.New(cfg.Analytics, nil, logger),
		Store:    store,
		Apps:     apps,
		Sink:     sink,
		Metrics:  a.Metrics,
		Logger:   logger,
	}, loc, cfg.Analytics.LookbackWeeks, cfg.Report.Enabled)

	ok = true
	return a, nil
}

func loadProjects(path string) (*project.Registry, error) {
	var overrides []project.Config
	if path != "" {
		var err error
		if overrides, err = project.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return project.NewRegistry(overrides...)
}

func (a *App) initialStore(ctx context.Context, cfg *config.Config, rdb *database.RedisDB, logger *zap.Logger) (storage.InitialValueStore, error) {
	switch cfg.Report.InitialBackend {
	case config.InitialBackendPostgres:
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Checks["postgres"] = db.Health

		if err := db.Migrate(ctx, storage.InitialMetricsMigrations...); err != nil {
			return nil, fmt.Errorf("initial values schema: %w", err)
		}
		return storage.NewPostgresInitialStore(db.Pool), nil
	case config.InitialBackendRedis:
		return storage.NewRedisInitialStore(rdb.Client, rdb.Key(cfg.Redis.InitialPrefix)), nil
	default:
		logger.Warn("initial values kept in memory, they will not survive a restart")
		return storage.NewInMemoryInitialStore(), nil
	}
}

func (a *App) snapshotSink(ctx context.Context, cfg config.ClickHouseConfig, logger *zap.Logger) storage.SnapshotSink {
	ch, err := database.NewClickHouseDB(ctx, cfg, logger)
	if err != nil {
		logger.Warn("ClickHouse not available, snapshot archive disabled", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, func() { _ = ch.Close() })
	a.Checks["clickhouse"] = ch.Health

	sink, err := storage.NewClickHouseSnapshotSink(ch.Conn, cfg.Table)
	if err == nil {
		err = sink.EnsureSchema(ctx)
	}
	if err != nil {
		logger.Warn("snapshot archive disabled", zap.Error(err))
		return nil
	}
	return sink
}

// Close releases every connection in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
