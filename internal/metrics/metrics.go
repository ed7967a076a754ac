package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/radiusdt/growth-report/internal/models"
)

// Metrics holds all Prometheus metrics for report runs.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	ReportRows  *prometheus.GaugeVec

	// Normalizer metrics
	RowsRead    *prometheus.CounterVec
	RowsKept    *prometheus.CounterVec
	RowsSkipped *prometheus.CounterVec

	// Classification metrics
	GrowthStatuses *prometheus.CounterVec

	// Initial value metrics
	InitialInserted   *prometheus.CounterVec
	InitialBackfilled *prometheus.CounterVec
	SnapshotsArchived *prometheus.CounterVec
	SnapshotFailures  *prometheus.CounterVec

	// Upstream metrics
	FetchLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// means the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_runs_total",
				Help:      "Total number of report runs",
			},
			[]string{"project", "status"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_run_duration_seconds",
				Help:      "Report run duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"project"},
		),
		ReportRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "report_rows",
				Help:      "Number of table rows emitted by the last successful run",
			},
			[]string{"project"},
		),

		RowsRead: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_read_total",
				Help:      "Raw analytics rows read",
			},
			[]string{"project"},
		),
		RowsKept: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_kept_total",
				Help:      "Raw analytics rows normalized into campaign records",
			},
			[]string{"project"},
		),
		RowsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_skipped_total",
				Help:      "Raw analytics rows skipped, by reason",
			},
			[]string{"project", "reason"},
		),

		GrowthStatuses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "growth_status_total",
				Help:      "Entity weeks classified, by growth status",
			},
			[]string{"project", "status"},
		),

		InitialInserted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "initial_values_inserted_total",
				Help:      "Initial value records inserted",
			},
			[]string{"project"},
		),
		InitialBackfilled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "initial_values_backfilled_total",
				Help:      "Null initial values backfilled",
			},
			[]string{"project"},
		),
		SnapshotsArchived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_archived_total",
				Help:      "Rollup snapshots written to the archive",
			},
			[]string{"project"},
		),
		SnapshotFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_failures_total",
				Help:      "Failed snapshot archive writes",
			},
			[]string{"project"},
		),

		FetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_latency_seconds",
				Help:      "Analytics fetch latency in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"project", "status"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served",
			},
			[]string{"method", "path", "code"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler for the registry the
// metrics were created on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRun records the outcome of one report run.
func (m *Metrics) RecordRun(project string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Runs.WithLabelValues(project, status).Inc()
	m.RunDuration.WithLabelValues(project).Observe(d.Seconds())
}

// RecordRows records normalizer counters.
func (m *Metrics) RecordRows(project string, read, kept int, skipped map[string]int) {
	m.RowsRead.WithLabelValues(project).Add(float64(read))
	m.RowsKept.WithLabelValues(project).Add(float64(kept))
	for reason, n := range skipped {
		m.RowsSkipped.WithLabelValues(project, reason).Add(float64(n))
	}
}

// RecordStatuses records growth status counts. Every status gets a series,
// so absent statuses read 0 instead of missing.
func (m *Metrics) RecordStatuses(project string, counts map[string]int) {
	for _, status := range models.AllGrowthStatuses {
		m.GrowthStatuses.WithLabelValues(project, string(status)).Add(float64(counts[string(status)]))
	}
}

// RecordInitialValues records initial value writes.
func (m *Metrics) RecordInitialValues(project string, inserted, backfilled int) {
	m.InitialInserted.WithLabelValues(project).Add(float64(inserted))
	m.InitialBackfilled.WithLabelValues(project).Add(float64(backfilled))
}

// RecordArchive records a snapshot archive write.
func (m *Metrics) RecordArchive(project string, n int, err error) {
	if err != nil {
		m.SnapshotFailures.WithLabelValues(project).Inc()
		return
	}
	m.SnapshotsArchived.WithLabelValues(project).Add(float64(n))
}

// RecordFetch records an analytics fetch.
func (m *Metrics) RecordFetch(project string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FetchLatency.WithLabelValues(project, status).Observe(d.Seconds())
}

// SetReportRows sets the row count of the last report.
func (m *Metrics) SetReportRows(project string, n int) {
	m.ReportRows.WithLabelValues(project).Set(float64(n))
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, path string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}
