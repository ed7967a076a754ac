package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/radiusdt/growth-report/internal/config"
	"github.com/radiusdt/growth-report/internal/metrics"
	"go.uber.org/zap"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestNewLogger(t *testing.T) {
	for _, tt := range []struct{ level, format string }{
		{"debug", "console"},
		{"info", "json"},
		{"bogus", "json"},
	} {
		logger, err := NewLogger(tt.level, tt.format)
		if err != nil || logger == nil {
			t.Errorf("NewLogger(%q, %q) = %v, %v", tt.level, tt.format, logger, err)
		}
	}
}

func TestRecovery(t *testing.T) {
	h := NewRecoveryMiddleware(zap.NewNop()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLoggingRecordsRoute(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	h := NewLoggingMiddleware(zap.NewNop(), m).Handler(ok)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/reports/REGULAR", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/reports/TRICKY", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodPost, "/reports/", "200")); got != 2 {
		t.Errorf("report requests = %v", got)
	}
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RateLimitConfig
		path     string
		requests int
		wantLast int
	}{
		{"disabled", config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1}, "/reports/REGULAR", 3, http.StatusOK},
		{"report burst exhausted", config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}, "/reports/REGULAR", 3, http.StatusTooManyRequests},
		{"cheap path has per-IP budget", config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}, "/health", 3, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics("test", prometheus.NewRegistry())
			rl := NewRateLimitMiddleware(tt.cfg, zap.NewNop())
			rl.SetMetrics(m)
			h := rl.Handler(ok)

			var rec *httptest.ResponseRecorder
			for i := 0; i < tt.requests; i++ {
				rec = httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
			}
			if rec.Code != tt.wantLast {
				t.Errorf("last status = %d, want %d", rec.Code, tt.wantLast)
			}
			if tt.wantLast == http.StatusTooManyRequests {
				if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/reports/")); got != 1 {
					t.Errorf("hits = %v", got)
				}
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	rl := NewRateLimitMiddleware(config.RateLimitConfig{}, zap.NewNop())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := rl.getClientIP(r); got != "10.0.0.1" {
		t.Errorf("remote addr ip = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := rl.getClientIP(r); got != "1.2.3.4" {
		t.Errorf("forwarded ip = %q", got)
	}
}
