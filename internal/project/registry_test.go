package project

import (
	"errors"
	"testing"

	"github.com/radiusdt/growth-report/internal/models"
)

func TestRegistryPresets(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cfg, err := r.Get("tricky")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.Shape != models.ShapeSourceApp {
		t.Errorf("shape = %s", cfg.Shape)
	}
	if cfg.Thresholds != DefaultThresholds {
		t.Errorf("thresholds not defaulted: %+v", cfg.Thresholds)
	}
	if cfg.Offsets != DefaultOffsets {
		t.Errorf("offsets not defaulted: %+v", cfg.Offsets)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownProject) {
		t.Errorf("expected ErrUnknownProject, got %v", err)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r, err := NewRegistry(Config{Name: "custom", LegacyAppNames: map[string]string{"Old": "New"}})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := r.Get("CUSTOM")
	a.LegacyAppNames["Old"] = "Mutated"
	a.GeoPatterns[0].Tag = "XX"

	b, _ := r.Get("CUSTOM")
	if b.AppName("Old") != "New" {
		t.Fatalf("registry state leaked through copy: %q", b.AppName("Old"))
	}
	if b.GeoPatterns[0].Tag == "XX" {
		t.Fatal("geo patterns leaked through copy")
	}
}

func TestParse(t *testing.T) {
	doc := []byte(`
projects:
  - name: acme
    shape: network
    thresholds:
      healthy_spend: 20
      healthy_profit: 10
    legacy_app_names:
      "Acme Old": "Acme"
  - name: plain
`)
	cfgs, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("got %d projects", len(cfgs))
	}
	r, err := NewRegistry(cfgs...)
	if err != nil {
		t.Fatal(err)
	}
	acme, err := r.Get("ACME")
	if err != nil {
		t.Fatal(err)
	}
	if acme.Shape != models.ShapeNetwork || acme.Thresholds.HealthySpend != 20 {
		t.Errorf("unexpected config %+v", acme)
	}
	if acme.Thresholds.ScalingDownSpend != DefaultThresholds.ScalingDownSpend {
		t.Errorf("unset threshold not defaulted: %+v", acme.Thresholds)
	}
	if acme.AppName("Acme Old") != "Acme" {
		t.Errorf("legacy name not applied")
	}
	plain, _ := r.Get("plain")
	if plain.Shape != models.ShapeFlat {
		t.Errorf("plain shape = %s", plain.Shape)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad shape":   "projects:\n  - name: x\n    shape: pyramid\n",
		"no name":     "projects:\n  - shape: flat\n",
		"bad yaml":    "projects: [",
		"bad geo tag": "projects:\n  - name: x\n    geo_patterns:\n      - pattern: us\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCheck(t *testing.T) {
	bad := []Config{
		{Name: "A", Shape: "pyramid"},
		{Name: "B", Shape: models.ShapeFlat, GeoPatterns: []GeoPattern{{Tag: "X", Pattern: "("}}},
		{Name: "C", Shape: models.ShapeSourceApp},
		{Name: "D", Shape: models.ShapeCountry, CountryPattern: "[A-Z]{2}"},
	}
	for _, cfg := range bad {
		if _, err := NewRegistry(cfg); err == nil {
			t.Errorf("%s: expected error", cfg.Name)
		}
	}
}
