package project

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnknownProject is returned for a project name with no configuration.
var ErrUnknownProject = errors.New("unknown project")

// Registry resolves project names to configurations.
type Registry struct {
	projects map[string]Config
}

// fileFormat is the layout of a projects override file.
type fileFormat struct {
	Projects []Config `yaml:"projects" validate:"dive"`
}

// NewRegistry returns the presets overlaid with overrides. An override with
// the name of a preset replaces it entirely.
func NewRegistry(overrides ...Config) (*Registry, error) {
	r := &Registry{projects: make(map[string]Config, len(Presets)+len(overrides))}
	for name, cfg := range Presets {
		cfg = cfg.withDefaults()
		if err := cfg.Check(); err != nil {
			return nil, err
		}
		r.projects[name] = cfg
	}
	for _, cfg := range overrides {
		cfg = cfg.withDefaults()
		if err := cfg.Check(); err != nil {
			return nil, err
		}
		r.projects[cfg.Name] = cfg
	}
	return r, nil
}

// LoadFile reads project overrides from a YAML file.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a projects YAML document.
func Parse(data []byte) ([]Config, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse projects file: %w", err)
	}
	for i := range f.Projects {
		if f.Projects[i].Shape == "" {
			f.Projects[i].Shape = "flat"
		}
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid projects file: %w", err)
	}
	return f.Projects, nil
}

// Get returns a private copy of the named project's configuration.
func (r *Registry) Get(name string) (Config, error) {
	cfg, ok := r.projects[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownProject, name)
	}
	return cfg.clone(), nil
}

// Names returns the known project names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.projects))
	for name := range r.projects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c Config) clone() Config {
	if c.GeoPatterns != nil {
		c.GeoPatterns = append([]GeoPattern(nil), c.GeoPatterns...)
	}
	if c.LegacyAppNames != nil {
		m := make(map[string]string, len(c.LegacyAppNames))
		for k, v := range c.LegacyAppNames {
			m[k] = v
		}
		c.LegacyAppNames = m
	}
	return c
}

// UnmarshalYAML starts from DefaultThresholds so a file may override a
// single threshold.
func (t *Thresholds) UnmarshalYAML(value *yaml.Node) error {
	type plain Thresholds
	p := plain(DefaultThresholds)
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = Thresholds(p)
	return nil
}

// UnmarshalYAML starts from DefaultForecastBounds.
func (b *ForecastBounds) UnmarshalYAML(value *yaml.Node) error {
	type plain ForecastBounds
	p := plain(DefaultForecastBounds)
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = ForecastBounds(p)
	return nil
}
