package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/growth-report/internal/config"
	"github.com/radiusdt/growth-report/internal/metrics"
	"github.com/radiusdt/growth-report/internal/middleware"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/report"
	"go.uber.org/zap"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Reports *report.Service
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Checks are run by /health, keyed by service name.
	Checks map[string]HealthCheck
	// RateLimiter is created from Config.RateLimit when nil.
	RateLimiter *middleware.RateLimitMiddleware
}

// Server wraps HTTP handlers and the report service.
type Server struct {
	reports *report.Service
	config  *config.Config
	logger  *zap.Logger
	checks  map[string]HealthCheck
}

// NewServer constructs a new http.Handler with all routes registered and
// the middleware chain applied.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		reports: deps.Reports,
		config:  deps.Config,
		logger:  deps.Logger,
		checks:  deps.Checks,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Reports
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/reports/", s.handleReport)

	rl := deps.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
		rl.SetMetrics(deps.Metrics)
	}

	var h http.Handler = mux
	h = rl.Handler(h)
	h = middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics).Handler(h)
	h = middleware.NewRecoveryMiddleware(deps.Logger).Handler(h)
	return h
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// ---- Projects ----

type projectInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Shape string `json:"shape"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var out []projectInfo
	for _, name := range s.reports.Projects() {
		cfg, err := s.reports.Project(name)
		if err != nil {
			continue
		}
		out = append(out, projectInfo{Name: cfg.Name, Title: cfg.Title(), Shape: string(cfg.Shape)})
	}
	s.jsonResponse(w, out)
}

// ---- Reports ----

type reportResponse struct {
	Status string `json:"status"`
	*report.Report
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/reports/"), "/")
	if name == "" || strings.Contains(name, "/") {
		s.errorResponse(w, "project required", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	var opts report.Options
	if v := q.Get("include_last_week"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			s.errorResponse(w, "invalid include_last_week", http.StatusBadRequest)
			return
		}
		opts.IncludeLastWeek = &include
	}
	format := q.Get("format")
	if format != "" && format != "json" && format != "csv" {
		s.errorResponse(w, "format must be json or csv", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.config.Server.ReportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Server.ReportTimeout)
		defer cancel()
	}

	rep, err := s.reports.Generate(ctx, name, opts)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrUnknownProject), errors.Is(err, report.ErrProjectDisabled):
			s.errorResponse(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, context.DeadlineExceeded):
			s.errorResponse(w, "report timed out", http.StatusGatewayTimeout)
		default:
			s.errorResponse(w, "error during processing", http.StatusInternalServerError)
		}
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+rep.Project+`.csv"`)
		if err := report.WriteCSV(w, rep); err != nil {
			s.logger.Error("csv write failed", zap.Error(err))
		}
		return
	}

	resp := reportResponse{Status: "ok", Report: rep}
	if rep.Empty() {
		resp.Status = "no_data"
		rep.Rows = []report.Row{}
	}
	s.jsonResponse(w, resp)
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
