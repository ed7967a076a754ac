package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Initial-value store backends.
const (
	InitialBackendMemory   = "memory"
	InitialBackendPostgres = "postgres"
	InitialBackendRedis    = "redis"
)

// Config holds all configuration for the growth report service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Analytics  AnalyticsConfig
	Report     ReportConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
	ReportTimeout   time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
	// Pool recycling; the report service keeps few long-lived connections.
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	// KeyPrefix namespaces every key this service reads or writes.
	KeyPrefix string
	// AppsKey is the hash holding the Apps Database (bundle id → JSON entry).
	AppsKey string
	// InitialPrefix prefixes the per-project initial-value hashes.
	InitialPrefix string
}

// ClickHouseConfig configures the run snapshot archive.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// AnalyticsConfig configures the GraphQL analytics source.
type AnalyticsConfig struct {
	URL           string
	Token         string
	Timeout       time.Duration
	RPS           float64
	MaxRetries    int
	RetryBaseWait time.Duration
	LookbackWeeks int
}

// ReportConfig holds report-building defaults.
type ReportConfig struct {
	Timezone       string
	ProjectsFile   string
	DefaultProject string
	InitialBackend string
	// Enabled restricts the projects served over HTTP; empty serves all.
	Enabled []string
}

// Location returns the report time zone.
func (r ReportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("GROWTH_REPORT_HTTP_ADDR", ":8080"),
			Env:             getEnv("GROWTH_REPORT_ENV", "development"),
			ShutdownTimeout: getDurationEnv("GROWTH_REPORT_SHUTDOWN_TIMEOUT", 30*time.Second),
			ReportTimeout:   getDurationEnv("GROWTH_REPORT_REPORT_TIMEOUT", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Host:     getEnv("GROWTH_REPORT_DB_HOST", "localhost"),
			Port:     getIntEnv("GROWTH_REPORT_DB_PORT", 5432),
			User:     getEnv("GROWTH_REPORT_DB_USER", "growth"),
			Password: getEnv("GROWTH_REPORT_DB_PASSWORD", "growth_secret"),
			DBName:   getEnv("GROWTH_REPORT_DB_NAME", "growth_report"),
			SSLMode:  getEnv("GROWTH_REPORT_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("GROWTH_REPORT_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("GROWTH_REPORT_DB_MIN_CONNS", 1),

			MaxConnLifetime: getDurationEnv("GROWTH_REPORT_DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getDurationEnv("GROWTH_REPORT_DB_MAX_CONN_IDLE", 10*time.Minute),
			ConnectTimeout:  getDurationEnv("GROWTH_REPORT_DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:          getEnv("GROWTH_REPORT_REDIS_ADDR", "localhost:6379"),
			Password:      getEnv("GROWTH_REPORT_REDIS_PASSWORD", ""),
			DB:            getIntEnv("GROWTH_REPORT_REDIS_DB", 0),
			PoolSize:      getIntEnv("GROWTH_REPORT_REDIS_POOL_SIZE", 4),
			DialTimeout:   getDurationEnv("GROWTH_REPORT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			KeyPrefix:     getEnv("GROWTH_REPORT_REDIS_KEY_PREFIX", "growth_report"),
			AppsKey:       getEnv("GROWTH_REPORT_REDIS_APPS_KEY", "apps_database"),
			InitialPrefix: getEnv("GROWTH_REPORT_REDIS_INITIAL_PREFIX", "initial_metrics"),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("GROWTH_REPORT_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("GROWTH_REPORT_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("GROWTH_REPORT_CLICKHOUSE_DB", "default"),
			Username: getEnv("GROWTH_REPORT_CLICKHOUSE_USER", "default"),
			Password: getEnv("GROWTH_REPORT_CLICKHOUSE_PASSWORD", ""),
			Table:    getEnv("GROWTH_REPORT_CLICKHOUSE_TABLE", "growth_snapshots"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("GROWTH_REPORT_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("GROWTH_REPORT_RATE_LIMIT_RPS", 5),
			Burst:   getIntEnv("GROWTH_REPORT_RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("GROWTH_REPORT_LOG_LEVEL", "info"),
			Format: getEnv("GROWTH_REPORT_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("GROWTH_REPORT_METRICS_ENABLED", true),
			Path:      getEnv("GROWTH_REPORT_METRICS_PATH", "/metrics"),
			Namespace: getEnv("GROWTH_REPORT_METRICS_NAMESPACE", "growth_report"),
		},
		Analytics: AnalyticsConfig{
			URL:           getEnv("GROWTH_REPORT_ANALYTICS_URL", ""),
			Token:         getEnv("GROWTH_REPORT_ANALYTICS_TOKEN", ""),
			Timeout:       getDurationEnv("GROWTH_REPORT_ANALYTICS_TIMEOUT", 60*time.Second),
			RPS:           getFloatEnv("GROWTH_REPORT_ANALYTICS_RPS", 2),
			MaxRetries:    getIntEnv("GROWTH_REPORT_ANALYTICS_MAX_RETRIES", 3),
			RetryBaseWait: getDurationEnv("GROWTH_REPORT_ANALYTICS_RETRY_WAIT", time.Second),
			LookbackWeeks: getIntEnv("GROWTH_REPORT_ANALYTICS_LOOKBACK_WEEKS", 8),
		},
		Report: ReportConfig{
			Timezone:       getEnv("GROWTH_REPORT_TIMEZONE", "UTC"),
			ProjectsFile:   getEnv("GROWTH_REPORT_PROJECTS_FILE", ""),
			DefaultProject: getEnv("GROWTH_REPORT_DEFAULT_PROJECT", "REGULAR"),
			InitialBackend: getEnv("GROWTH_REPORT_INITIAL_BACKEND", InitialBackendMemory),
			Enabled:        getSliceEnv("GROWTH_REPORT_PROJECTS", nil),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Report.InitialBackend {
	case InitialBackendMemory, InitialBackendPostgres, InitialBackendRedis:
	default:
		return fmt.Errorf("GROWTH_REPORT_INITIAL_BACKEND must be one of memory, postgres, redis; got %q", c.Report.InitialBackend)
	}
	if _, err := c.Report.Location(); err != nil {
		return fmt.Errorf("GROWTH_REPORT_TIMEZONE: %w", err)
	}
	if c.Analytics.URL == "" && !c.IsDevelopment() {
		return fmt.Errorf("GROWTH_REPORT_ANALYTICS_URL is required outside development")
	}
	if c.IsProduction() && c.Report.InitialBackend == InitialBackendMemory {
		return fmt.Errorf("GROWTH_REPORT_INITIAL_BACKEND=memory is not allowed in production")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("GROWTH_REPORT_DB_MIN_CONNS must not exceed GROWTH_REPORT_DB_MAX_CONNS")
	}
	if c.Analytics.LookbackWeeks < 2 {
		return fmt.Errorf("GROWTH_REPORT_ANALYTICS_LOOKBACK_WEEKS must be at least 2")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getSliceEnv reads a comma-separated list.
func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
