package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/JashanChopra/Summit/internal/standards"
	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files.
// Values absent from the file keep their compiled-in defaults, and a
// missing file yields the defaults unchanged.
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML mirror structs. Durations are Go duration strings ("60s", "5m").
type configYAML struct {
	DataDir     string                        `yaml:"data-dir,omitempty"`
	FilePattern string                        `yaml:"file-pattern,omitempty"`
	Storage     storageYAML                   `yaml:"storage,omitempty"`
	Pipeline    pipelineYAML                  `yaml:"pipeline,omitempty"`
	Calibration calibrationYAML               `yaml:"calibration,omitempty"`
	Log         logYAML                       `yaml:"log,omitempty"`
	Standards   map[string]map[string]float64 `yaml:"standards,omitempty"`
	RESTServer  *restYAML                     `yaml:"rest,omitempty"`
}

type storageYAML struct {
	SQLite *struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite,omitempty"`
	Postgres *struct {
		ConnectionString string `yaml:"connection-string"`
	} `yaml:"postgres,omitempty"`
}

type pipelineYAML struct {
	IngestInterval      string `yaml:"ingest-interval,omitempty"`
	CalibrationInterval string `yaml:"calibration-interval,omitempty"`
	MatchInterval       string `yaml:"match-interval,omitempty"`
	FlushInterval       string `yaml:"flush-interval,omitempty"`
}

type calibrationYAML struct {
	GapThreshold   string `yaml:"gap-threshold,omitempty"`
	MinDuration    string `yaml:"min-duration,omitempty"`
	Window         string `yaml:"window,omitempty"`
	MatchTolerance string `yaml:"match-tolerance,omitempty"`
	FlushWindow    string `yaml:"flush-window,omitempty"`
}

type logYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

type restYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	config := DefaultConfig()

	cfgFile, err := os.ReadFile(y.filename)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	var yamlConfig configYAML
	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, fmt.Errorf("parse %s: %w", y.filename, err)
	}

	if yamlConfig.DataDir != "" {
		config.DataDir = yamlConfig.DataDir
	}
	if yamlConfig.FilePattern != "" {
		config.FilePattern = yamlConfig.FilePattern
	}

	// Convert storage
	if yamlConfig.Storage.Postgres != nil {
		config.Storage = StorageData{
			Postgres: &PostgresData{ConnectionString: yamlConfig.Storage.Postgres.ConnectionString},
		}
	} else if yamlConfig.Storage.SQLite != nil {
		config.Storage = StorageData{
			SQLite: &SQLiteData{Path: yamlConfig.Storage.SQLite.Path},
		}
	}

	// Convert durations
	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"pipeline.ingest-interval", yamlConfig.Pipeline.IngestInterval, &config.Pipeline.IngestInterval},
		{"pipeline.calibration-interval", yamlConfig.Pipeline.CalibrationInterval, &config.Pipeline.CalibrationInterval},
		{"pipeline.match-interval", yamlConfig.Pipeline.MatchInterval, &config.Pipeline.MatchInterval},
		{"pipeline.flush-interval", yamlConfig.Pipeline.FlushInterval, &config.Pipeline.FlushInterval},
		{"calibration.gap-threshold", yamlConfig.Calibration.GapThreshold, &config.Calibration.GapThreshold},
		{"calibration.min-duration", yamlConfig.Calibration.MinDuration, &config.Calibration.MinDuration},
		{"calibration.window", yamlConfig.Calibration.Window, &config.Calibration.Window},
		{"calibration.match-tolerance", yamlConfig.Calibration.MatchTolerance, &config.Calibration.MatchTolerance},
		{"calibration.flush-window", yamlConfig.Calibration.FlushWindow, &config.Calibration.FlushWindow},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.target = parsed
	}

	// Convert log settings
	if yamlConfig.Log.File != "" {
		config.Log.File = yamlConfig.Log.File
	}
	if yamlConfig.Log.MaxSizeMB > 0 {
		config.Log.MaxSizeMB = yamlConfig.Log.MaxSizeMB
	}
	if yamlConfig.Log.MaxBackups > 0 {
		config.Log.MaxBackups = yamlConfig.Log.MaxBackups
	}
	if yamlConfig.Log.MaxAgeDays > 0 {
		config.Log.MaxAgeDays = yamlConfig.Log.MaxAgeDays
	}

	// Certified values override the compiled-in table one entry at a time
	for cat, row := range yamlConfig.Standards {
		category := standards.Category(cat)
		if config.Standards[category] == nil {
			config.Standards[category] = make(map[standards.Compound]float64)
		}
		for cpd, v := range row {
			config.Standards[category][standards.Compound(cpd)] = v
		}
	}

	if yamlConfig.RESTServer != nil {
		config.RESTServer = &RESTServerData{
			ListenAddr: yamlConfig.RESTServer.ListenAddr,
			Port:       yamlConfig.RESTServer.Port,
		}
	}

	return config, nil
}

// IsReadOnly returns true since YAML files are treated as read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
