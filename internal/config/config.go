// Package config handles draw3d configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/nQrChao/kids-draw-3d/internal/logger"
)

// Config holds all settings.
type Config struct {
	OutputDir  string          `yaml:"output_dir"`
	TargetSize float64         `yaml:"target_size"`
	Workers    int             `yaml:"workers"`
	Repair     RepairConfig    `yaml:"repair"`
	Storage    StorageConfig   `yaml:"storage"`
	Generator  GeneratorConfig `yaml:"generator"`
	Heightmap  HeightmapConfig `yaml:"heightmap"`
	Preview    PreviewConfig   `yaml:"preview"`
	Logging    LoggingConfig   `yaml:"logging"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// RepairConfig holds cleanup tolerances.
type RepairConfig struct {
	MergeTolerance float64 `yaml:"merge_tolerance"`
	AreaEpsilon    float64 `yaml:"area_epsilon"`
}

// StorageConfig bounds the output directory size.
type StorageConfig struct {
	MaxBytes      int64         `yaml:"max_bytes"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// GeneratorConfig names the external image-to-3D command. An empty
// command means only the height-map fallback is used.
type GeneratorConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

// HeightmapConfig tunes the relief fallback.
type HeightmapConfig struct {
	Resolution int     `yaml:"resolution"`
	PixelSize  float64 `yaml:"pixel_size"`
	MaxHeight  float64 `yaml:"max_height"`
	BaseHeight float64 `yaml:"base_height"`
}

// PreviewConfig sizes the PNG thumbnail written per task; 0 disables it.
type PreviewConfig struct {
	Size int `yaml:"size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds the metrics listener address; empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		OutputDir:  "output",
		TargetSize: 50,
		Workers:    runtime.NumCPU(),
		Repair: RepairConfig{
			MergeTolerance: 1e-8,
			AreaEpsilon:    1e-12,
		},
		Storage: StorageConfig{
			MaxBytes:      5 << 30,
			SweepInterval: 10 * time.Minute,
		},
		Generator: GeneratorConfig{
			Args:    []string{"{input}", "{output}"},
			Timeout: 5 * time.Minute,
		},
		Heightmap: HeightmapConfig{
			Resolution: 128,
			PixelSize:  0.1,
			MaxHeight:  10,
			BaseHeight: 1,
		},
		Preview: PreviewConfig{
			Size: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must be set"))
	}
	positive("target_size", c.TargetSize)
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Repair.MergeTolerance < 0 {
		errs = append(errs, fmt.Errorf("repair.merge_tolerance must not be negative"))
	}
	if c.Repair.AreaEpsilon < 0 {
		errs = append(errs, fmt.Errorf("repair.area_epsilon must not be negative"))
	}
	if c.Storage.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("storage.max_bytes must not be negative"))
	}
	if c.Heightmap.Resolution < 2 {
		errs = append(errs, fmt.Errorf("heightmap.resolution must be at least 2, got %d", c.Heightmap.Resolution))
	}
	positive("heightmap.pixel_size", c.Heightmap.PixelSize)
	positive("heightmap.max_height", c.Heightmap.MaxHeight)
	positive("heightmap.base_height", c.Heightmap.BaseHeight)
	if c.Preview.Size < 0 {
		errs = append(errs, fmt.Errorf("preview.size must not be negative, got %d", c.Preview.Size))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}
