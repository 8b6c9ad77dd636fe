package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.SettleIntervalMS != 150 {
		t.Errorf("SettleIntervalMS = %d, want 150", cfg.SettleIntervalMS)
	}
	if cfg.CacheTTLMS != 1000 {
		t.Errorf("CacheTTLMS = %d, want 1000", cfg.CacheTTLMS)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.PipeName == "" {
		t.Error("PipeName default must not be empty")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "winvd.yaml"))
	if err == nil {
		// viper errors on an explicitly named missing file; both
		// outcomes are acceptable as long as defaults survive.
		if cfg.SettleIntervalMS != 150 {
			t.Errorf("SettleIntervalMS = %d, want default 150", cfg.SettleIntervalMS)
		}
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winvd.yaml")

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.SettleIntervalMS = 300
	cfg.CacheTTLMS = 2500

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", got.LogLevel)
	}
	if got.SettleIntervalMS != 300 {
		t.Errorf("SettleIntervalMS = %d, want 300", got.SettleIntervalMS)
	}
	if got.CacheTTLMS != 2500 {
		t.Errorf("CacheTTLMS = %d, want 2500", got.CacheTTLMS)
	}
}
