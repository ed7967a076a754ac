package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/radiusdt/growth-report/internal/config"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Metrics:   config.MetricsConfig{Enabled: true, Namespace: "test"},
		Analytics: config.AnalyticsConfig{LookbackWeeks: 4},
		Report: config.ReportConfig{
			Timezone:       "Europe/Berlin",
			InitialBackend: config.InitialBackendMemory,
		},
	}
}

func TestNewInMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), prometheus.NewRegistry(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Reports == nil || a.Metrics == nil {
		t.Fatal("service or metrics missing")
	}
	if len(a.Checks) != 0 {
		t.Errorf("checks = %v", a.Checks)
	}
	if len(a.Reports.Projects()) == 0 {
		t.Error("no projects")
	}
}

func TestNewWithProjectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	doc := "projects:\n  - name: custom\n    shape: flat\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := memoryConfig()
	cfg.Report.ProjectsFile = path
	cfg.Report.Enabled = []string{"custom"}

	a, err := New(context.Background(), cfg, prometheus.NewRegistry(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if got := a.Reports.Projects(); len(got) != 1 || got[0] != "CUSTOM" {
		t.Errorf("projects = %v", got)
	}
}

func TestNewBadInputs(t *testing.T) {
	cfg := memoryConfig()
	cfg.Report.ProjectsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(context.Background(), cfg, prometheus.NewRegistry(), zap.NewNop()); err == nil {
		t.Error("missing projects file accepted")
	}

	cfg = memoryConfig()
	cfg.Report.Timezone = "Mars/Olympus"
	if _, err := New(context.Background(), cfg, prometheus.NewRegistry(), zap.NewNop()); err == nil {
		t.Error("bad timezone accepted")
	}
}
