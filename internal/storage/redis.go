package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/growth-report/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Field layout of the per-project initial-value hash: the five key parts
// joined by fieldSep, then a suffix naming the stored value.
const (
	fieldSep      = "\x1f"
	suffixRecord  = "recorded"
	suffixEROAS   = string(models.MetricEROAS)
	suffixProfit  = string(models.MetricProfit)
	keyPartsCount = 5
)

// RedisInitialStore implements InitialValueStore on one Redis hash per
// project. HSETNX makes each metric write-once.
type RedisInitialStore struct {
	client *redis.Client
	prefix string
}

func NewRedisInitialStore(client *redis.Client, prefix string) *RedisInitialStore {
	return &RedisInitialStore{client: client, prefix: prefix}
}

func (s *RedisInitialStore) hashKey(project string) string {
	return s.prefix + ":" + project
}

func initialField(key models.InitialKey, suffix string) string {
	return strings.Join([]string{
		string(key.Level), key.AppName, key.WeekRange, key.Identifier, key.SourceApp, suffix,
	}, fieldSep)
}

func parseInitialField(field string) (models.InitialKey, string, bool) {
	parts := strings.Split(field, fieldSep)
	if len(parts) != keyPartsCount+1 {
		return models.InitialKey{}, "", false
	}
	return models.InitialKey{
		Level:      models.Level(parts[0]),
		AppName:    parts[1],
		WeekRange:  parts[2],
		Identifier: parts[3],
		SourceApp:  parts[4],
	}, parts[5], true
}

func (s *RedisInitialStore) Load(ctx context.Context, project string) ([]models.InitialValueRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.hashKey(project)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load initial metrics: %w", err)
	}
	return decodeInitialHash(fields), nil
}

func decodeInitialHash(fields map[string]string) []models.InitialValueRecord {
	byKey := make(map[models.InitialKey]*models.InitialValueRecord)
	for field, raw := range fields {
		key, suffix, ok := parseInitialField(field)
		if !ok {
			continue
		}
		rec, ok := byKey[key]
		if !ok {
			rec = &models.InitialValueRecord{InitialKey: key}
			byKey[key] = rec
		}
		switch suffix {
		case suffixRecord:
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				rec.DateRecorded = t
			}
		case suffixEROAS:
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				rec.InitialEROAS = &v
			}
		case suffixProfit:
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				rec.InitialProfit = &v
			}
		}
	}
	out := make([]models.InitialValueRecord, 0, len(byKey))
	for _, rec := range byKey {
		if rec.DateRecorded.IsZero() {
			// a metric without its record marker was never inserted
			continue
		}
		out = append(out, *rec)
	}
	sortRecords(out)
	return out
}

func (s *RedisInitialStore) Get(ctx context.Context, project string, key models.InitialKey) (*models.InitialValueRecord, error) {
	vals, err := s.client.HMGet(ctx, s.hashKey(project),
		initialField(key, suffixRecord),
		initialField(key, suffixEROAS),
		initialField(key, suffixProfit),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get initial metric: %w", err)
	}
	fields := make(map[string]string, len(vals))
	for i, suffix := range []string{suffixRecord, suffixEROAS, suffixProfit} {
		if str, ok := vals[i].(string); ok {
			fields[initialField(key, suffix)] = str
		}
	}
	recs := decodeInitialHash(fields)
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *RedisInitialStore) InsertIfAbsent(ctx context.Context, project string, rec models.InitialValueRecord) (bool, error) {
	if err := checkKey(rec.InitialKey); err != nil {
		return false, err
	}
	recorded := rec.DateRecorded
	if recorded.IsZero() {
		recorded = time.Now()
	}
	hash := s.hashKey(project)
	created, err := s.client.HSetNX(ctx, hash, initialField(rec.InitialKey, suffixRecord), recorded.UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to insert initial metric: %w", err)
	}
	if !created {
		return false, nil
	}
	if rec.InitialEROAS != nil {
		if err := s.client.HSetNX(ctx, hash, initialField(rec.InitialKey, suffixEROAS), formatFloat(*rec.InitialEROAS)).Err(); err != nil {
			return true, fmt.Errorf("failed to store initial eroas: %w", err)
		}
	}
	if rec.InitialProfit != nil {
		if err := s.client.HSetNX(ctx, hash, initialField(rec.InitialKey, suffixProfit), formatFloat(*rec.InitialProfit)).Err(); err != nil {
			return true, fmt.Errorf("failed to store initial profit: %w", err)
		}
	}
	return true, nil
}

func (s *RedisInitialStore) BackfillIfNull(ctx context.Context, project string, key models.InitialKey, metric models.InitialMetric, value float64) (bool, error) {
	if metric != models.MetricEROAS && metric != models.MetricProfit {
		return false, fmt.Errorf("unknown initial metric %q", metric)
	}
	hash := s.hashKey(project)
	exists, err := s.client.HExists(ctx, hash, initialField(key, suffixRecord)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check initial metric: %w", err)
	}
	if !exists {
		return false, nil
	}
	set, err := s.client.HSetNX(ctx, hash, initialField(key, string(metric)), formatFloat(value)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to backfill %s: %w", metric, err)
	}
	return set, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RedisAppsDirectory reads the Apps Database from a Redis hash of bundle id
// to JSON-encoded PublisherApp.
type RedisAppsDirectory struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedisAppsDirectory(client *redis.Client, key string, logger *zap.Logger) *RedisAppsDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisAppsDirectory{client: client, key: key, logger: logger}
}

func (d *RedisAppsDirectory) Load(ctx context.Context) (models.AppsIndex, error) {
	entries, err := d.client.HGetAll(ctx, d.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load apps database: %w", err)
	}
	return decodeApps(entries, d.logger), nil
}

func decodeApps(entries map[string]string, logger *zap.Logger) models.AppsIndex {
	index := make(models.AppsIndex, len(entries))
	for bundle, raw := range entries {
		var app models.PublisherApp
		if err := json.Unmarshal([]byte(raw), &app); err != nil {
			logger.Warn("skipping malformed apps database entry",
				zap.String("bundle_id", bundle), zap.Error(err))
			continue
		}
		app.BundleID = bundle
		index[bundle] = app
	}
	return index
}
