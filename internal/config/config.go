// Package config loads the on-disk YAML configuration for analysis runs.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/ingestion"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Series   SeriesConfig   `yaml:"series"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
}

// SeriesConfig selects the input series. CSVPath takes precedence over URL
// when both are set.
type SeriesConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	CSVPath string `yaml:"csv_path"`
}

// AnalysisConfig selects baselines, window sizes and thresholds.
// Thresholds may be listed explicitly or generated from ThresholdRange;
// an explicit list wins when both are present.
type AnalysisConfig struct {
	Baselines      []int           `yaml:"baselines"`
	WindowSizes    []int           `yaml:"window_sizes"`
	Thresholds     []float64       `yaml:"thresholds"`
	ThresholdRange *ThresholdRange `yaml:"threshold_range"`
}

// ThresholdRange generates Steps evenly spaced thresholds over [Min, Max],
// each rounded to six decimals.
type ThresholdRange struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Steps int     `yaml:"steps"`
}

// OutputConfig controls report artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// ClickhouseDSN, when set, additionally persists raw window CAGR
	// points to ClickHouse.
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Series: SeriesConfig{
			Name: "sp500",
			URL:  ingestion.DefaultReturnsURL,
		},
		Analysis: AnalysisConfig{
			Baselines:   append([]int(nil), domain.DefaultBaselines...),
			WindowSizes: append([]int(nil), domain.DefaultWindowSizes...),
			Thresholds:  append([]float64(nil), domain.DefaultThresholds...),
		},
		Output:  OutputConfig{Dir: "output"},
		Storage: StorageConfig{Backend: "memory"},
	}
}

// Load reads, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults fills unset fields. A configured threshold_range suppresses
// the default threshold list.
func (c *Config) applyDefaults() {
	if c.Series.Name == "" {
		c.Series.Name = "sp500"
	}
	if c.Series.URL == "" && c.Series.CSVPath == "" {
		c.Series.URL = ingestion.DefaultReturnsURL
	}
	if len(c.Analysis.Baselines) == 0 {
		c.Analysis.Baselines = append([]int(nil), domain.DefaultBaselines...)
	}
	if len(c.Analysis.WindowSizes) == 0 {
		c.Analysis.WindowSizes = append([]int(nil), domain.DefaultWindowSizes...)
	}
	if len(c.Analysis.Thresholds) == 0 && c.Analysis.ThresholdRange == nil {
		c.Analysis.Thresholds = append([]float64(nil), domain.DefaultThresholds...)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Series.Name == "" {
		return errors.New("series.name is required")
	}
	if c.Series.URL == "" && c.Series.CSVPath == "" {
		return errors.New("series needs a url or csv_path")
	}
	if len(c.Analysis.Baselines) == 0 {
		return errors.New("analysis.baselines is empty")
	}
	for _, size := range c.Analysis.WindowSizes {
		if size < 1 {
			return fmt.Errorf("analysis.window_sizes: invalid size %d", size)
		}
	}
	for _, thr := range c.Analysis.Thresholds {
		if thr < 0 {
			return fmt.Errorf("analysis.thresholds: negative threshold %g", thr)
		}
	}
	if r := c.Analysis.ThresholdRange; r != nil {
		if r.Steps < 2 {
			return errors.New("analysis.threshold_range.steps must be at least 2")
		}
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("analysis.threshold_range: invalid bounds [%g, %g]", r.Min, r.Max)
		}
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	return nil
}

// Request builds the analysis request, expanding a threshold range when no
// explicit threshold list is configured.
func (c *Config) Request() domain.AnalysisRequest {
	thresholds := c.Analysis.Thresholds
	if len(thresholds) == 0 && c.Analysis.ThresholdRange != nil {
		thresholds = c.Analysis.ThresholdRange.Expand()
	}
	return domain.AnalysisRequest{
		Baselines:   c.Analysis.Baselines,
		WindowSizes: c.Analysis.WindowSizes,
		Thresholds:  thresholds,
	}
}

// Expand generates the evenly spaced thresholds for the range.
func (r *ThresholdRange) Expand() []float64 {
	out := make([]float64, r.Steps)
	step := (r.Max - r.Min) / float64(r.Steps-1)
	for i := 0; i < r.Steps; i++ {
		v := r.Min + float64(i)*step
		out[i] = math.Round(v*1e6) / 1e6
	}
	return out
}
