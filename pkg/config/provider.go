package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/JashanChopra/Summit/internal/standards"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	// DataDir is searched recursively for analyzer output files
	DataDir     string `json:"data_dir"`
	FilePattern string `json:"file_pattern"`

	Storage     StorageData     `json:"storage"`
	Pipeline    PipelineData    `json:"pipeline"`
	Calibration CalibrationData `json:"calibration"`
	Log         LogData         `json:"log"`

	// Standards holds certified concentrations keyed by standard then compound
	Standards map[standards.Category]map[standards.Compound]float64 `json:"standards"`

	RESTServer *RESTServerData `json:"rest,omitempty"`
}

// StorageData selects the persistent store. Exactly one backend is used;
// Postgres wins when a connection string is present.
type StorageData struct {
	SQLite   *SQLiteData   `json:"sqlite,omitempty"`
	Postgres *PostgresData `json:"postgres,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// PipelineData holds the polling interval of each pipeline task
type PipelineData struct {
	IngestInterval      time.Duration `json:"ingest_interval"`
	CalibrationInterval time.Duration `json:"calibration_interval"`
	MatchInterval       time.Duration `json:"match_interval"`
	FlushInterval       time.Duration `json:"flush_interval"`
}

// CalibrationData holds the segmentation, quantification and matching thresholds
type CalibrationData struct {
	GapThreshold   time.Duration `json:"gap_threshold"`
	MinDuration    time.Duration `json:"min_duration"`
	Window         time.Duration `json:"window"`
	MatchTolerance time.Duration `json:"match_tolerance"`
	FlushWindow    time.Duration `json:"flush_window"`
}

type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// DefaultConfig returns the compiled-in configuration
func DefaultConfig() *ConfigData {
	return &ConfigData{
		DataDir:     "data",
		FilePattern: "*.dat",
		Storage: StorageData{
			SQLite: &SQLiteData{Path: "summit_picarro.sqlite"},
		},
		Pipeline: PipelineData{
			IngestInterval:      5 * time.Second,
			CalibrationInterval: 20 * time.Second,
			MatchInterval:       20 * time.Second,
			FlushInterval:       20 * time.Second,
		},
		Calibration: CalibrationData{
			GapThreshold:   60 * time.Second,
			MinDuration:    90 * time.Second,
			Window:         21 * time.Second,
			MatchTolerance: 5 * time.Minute,
			FlushWindow:    time.Minute,
		},
		Log: LogData{
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 90,
		},
		Standards: standards.DefaultValues(),
	}
}

// Registry builds the standards registry from the configured table
func (c *ConfigData) Registry() (*standards.Registry, error) {
	return standards.NewRegistry(c.Standards)
}

// Validate checks that the configuration can drive the pipeline
func (c *ConfigData) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory must be set")
	}
	if c.FilePattern == "" {
		return errors.New("file pattern must be set")
	}
	if c.Storage.SQLite == nil && c.Storage.Postgres == nil {
		return errors.New("no storage backend configured")
	}

	durations := map[string]time.Duration{
		"pipeline.ingest-interval":      c.Pipeline.IngestInterval,
		"pipeline.calibration-interval": c.Pipeline.CalibrationInterval,
		"pipeline.match-interval":       c.Pipeline.MatchInterval,
		"pipeline.flush-interval":       c.Pipeline.FlushInterval,
		"calibration.gap-threshold":     c.Calibration.GapThreshold,
		"calibration.min-duration":      c.Calibration.MinDuration,
		"calibration.window":            c.Calibration.Window,
		"calibration.match-tolerance":   c.Calibration.MatchTolerance,
		"calibration.flush-window":      c.Calibration.FlushWindow,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}

	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("invalid standards table: %w", err)
	}
	return nil
}
