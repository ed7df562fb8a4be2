package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JashanChopra/Summit/internal/standards"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	p := NewYAMLProvider(filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Calibration.GapThreshold != 60*time.Second {
		t.Errorf("gap threshold = %v, want 60s", cfg.Calibration.GapThreshold)
	}
	if cfg.Calibration.MinDuration != 90*time.Second {
		t.Errorf("min duration = %v, want 90s", cfg.Calibration.MinDuration)
	}
	if cfg.Calibration.Window != 21*time.Second {
		t.Errorf("window = %v, want 21s", cfg.Calibration.Window)
	}
	if cfg.Calibration.MatchTolerance != 5*time.Minute {
		t.Errorf("match tolerance = %v, want 5m", cfg.Calibration.MatchTolerance)
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "summit_picarro.sqlite" {
		t.Errorf("unexpected storage default: %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
data-dir: /srv/picarro/data
storage:
  postgres:
    connection-string: postgres://summit@localhost/picarro
pipeline:
  ingest-interval: 2s
calibration:
  window: 30s
  match-tolerance: 4m
standards:
  mid_std:
    co: 120.1
rest:
  port: 8088
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DataDir != "/srv/picarro/data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Storage.Postgres == nil || cfg.Storage.SQLite != nil {
		t.Errorf("expected postgres storage only, got %+v", cfg.Storage)
	}
	if cfg.Pipeline.IngestInterval != 2*time.Second {
		t.Errorf("ingest interval = %v", cfg.Pipeline.IngestInterval)
	}
	if cfg.Pipeline.MatchInterval != 20*time.Second {
		t.Errorf("match interval should keep default, got %v", cfg.Pipeline.MatchInterval)
	}
	if cfg.Calibration.Window != 30*time.Second || cfg.Calibration.MatchTolerance != 4*time.Minute {
		t.Errorf("calibration overrides not applied: %+v", cfg.Calibration)
	}
	if got := cfg.Standards[standards.MidStd][standards.CO]; got != 120.1 {
		t.Errorf("mid co = %v, want 120.1", got)
	}
	if got := cfg.Standards[standards.MidStd][standards.CH4]; got != 1925.5 {
		t.Errorf("mid ch4 should keep default, got %v", got)
	}
	if cfg.RESTServer == nil || cfg.RESTServer.Port != 8088 {
		t.Errorf("rest server = %+v", cfg.RESTServer)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("calibration:\n  window: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewYAMLProvider(path).LoadConfig(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration.Window = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero window")
	}

	cfg = DefaultConfig()
	cfg.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty data dir")
	}

	cfg = DefaultConfig()
	delete(cfg.Standards, standards.HighStd)
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for incomplete standards")
	}
}
