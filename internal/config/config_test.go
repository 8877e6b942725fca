package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Test Constants
const (
	TestDebugLevel  = "DEBUG"
	TestMetricsAddr = "127.0.0.1:9999"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	// Test log defaults
	if cfg.Log.Level != "INFO" {
		t.Errorf("Expected Level to be INFO, got %s", cfg.Log.Level)
	}
	if cfg.Log.DiagnosticFile != "blokfs.log" {
		t.Errorf("Expected DiagnosticFile to be blokfs.log, got %s", cfg.Log.DiagnosticFile)
	}
	if cfg.Log.MaxSizeMB != 0 {
		t.Errorf("Expected rotation to be off by default, got MaxSizeMB %d", cfg.Log.MaxSizeMB)
	}

	// Test mount defaults
	if cfg.Mount.FSName != "blokfs" {
		t.Errorf("Expected FSName to be blokfs, got %s", cfg.Mount.FSName)
	}
	if cfg.Mount.AttrTimeout != 0 || cfg.Mount.EntryTimeout != 0 {
		t.Error("Expected attribute and entry caching to be off by default")
	}
	if cfg.Mount.ReadOnly {
		t.Error("Expected ReadOnly to be false")
	}

	// Test metrics defaults
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: func() *Configuration {
				return NewDefault()
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Log.Level = "LOUD"
				return cfg
			},
			wantErr: true,
			errMsg:  "oneof",
		},
		{
			name: "empty diagnostic file",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Log.DiagnosticFile = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "DiagnosticFile",
		},
		{
			name: "negative rotation size",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Log.MaxSizeMB = -1
				return cfg
			},
			wantErr: true,
			errMsg:  "MaxSizeMB",
		},
		{
			name: "max write too small",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Mount.MaxWrite = 512
				return cfg
			},
			wantErr: true,
			errMsg:  "MaxWrite",
		},
		{
			name: "metrics enabled without address",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "required_if",
		},
		{
			name: "metrics address without port",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = "localhost"
				return cfg
			},
			wantErr: true,
			errMsg:  "host:port",
		},
		{
			name: "mount point inside root",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.RootDir = "/srv/data"
				cfg.Global.MountPoint = "/srv/data/mnt"
				return cfg
			},
			wantErr: true,
			errMsg:  "inside root",
		},
		{
			name: "mount point equal to root",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.RootDir = "/srv/data"
				cfg.Global.MountPoint = "/srv/data/"
				return cfg
			},
			wantErr: true,
			errMsg:  "inside root",
		},
		{
			name: "sibling directories",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.RootDir = "/srv/data"
				cfg.Global.MountPoint = "/srv/data-mnt"
				return cfg
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
global:
  root_dir: /srv/data
  mount_point: /mnt/data

mount:
  allow_other: true
  attr_timeout: 1s
  options:
    - noatime

log:
  level: debug
  max_size_mb: 64

metrics:
  enabled: true
  address: 127.0.0.1:9999
`

	err := os.WriteFile(configFile, []byte(configContent), 0600)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	err = cfg.LoadFromFile(configFile)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	// Verify loaded values
	if cfg.Global.RootDir != "/srv/data" {
		t.Errorf("Expected RootDir to be /srv/data, got %s", cfg.Global.RootDir)
	}
	if cfg.Log.Level != TestDebugLevel {
		t.Errorf("Expected Level to be normalized to DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB != 64 {
		t.Errorf("Expected MaxSizeMB to be 64, got %d", cfg.Log.MaxSizeMB)
	}
	if !cfg.Mount.AllowOther {
		t.Error("Expected AllowOther to be true")
	}
	if cfg.Mount.AttrTimeout != time.Second {
		t.Errorf("Expected AttrTimeout to be 1s, got %v", cfg.Mount.AttrTimeout)
	}
	if len(cfg.Mount.Options) != 1 || cfg.Mount.Options[0] != "noatime" {
		t.Errorf("Expected Options to be [noatime], got %v", cfg.Mount.Options)
	}
	if cfg.Metrics.Address != TestMetricsAddr {
		t.Errorf("Expected metrics address %s, got %s", TestMetricsAddr, cfg.Metrics.Address)
	}

	// Untouched sections keep their defaults
	if cfg.Mount.FSName != "blokfs" {
		t.Errorf("Expected FSName default to survive, got %s", cfg.Mount.FSName)
	}
	if cfg.Log.DiagnosticFile != DefaultDiagnosticLog {
		t.Errorf("Expected DiagnosticFile default to survive, got %s", cfg.Log.DiagnosticFile)
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := NewDefault()
	err := cfg.LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configFile, []byte("log: [unterminated"), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err == nil {
		t.Error("Expected error when parsing malformed config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Set up environment variables
	testEnvVars := map[string]string{
		"BLOKFS_ROOT_DIR":        "/srv/env",
		"BLOKFS_MOUNT_POINT":     "/mnt/env",
		"BLOKFS_LOG_LEVEL":       "error",
		"BLOKFS_LOG_FILE":        "/var/log/blokfs.out",
		"BLOKFS_DIAGNOSTIC_LOG":  "trace.log",
		"BLOKFS_LOG_MAX_SIZE_MB": "16",
		"BLOKFS_READ_ONLY":       "true",
		"BLOKFS_ALLOW_OTHER":     "1",
		"BLOKFS_DEBUG":           "false",
		"BLOKFS_METRICS_ENABLED": "true",
		"BLOKFS_METRICS_ADDR":    TestMetricsAddr,
	}

	// Set environment variables
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg := NewDefault()
	err := cfg.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	// Verify loaded values
	if cfg.Global.RootDir != "/srv/env" || cfg.Global.MountPoint != "/mnt/env" {
		t.Errorf("Expected directories from env, got %s and %s", cfg.Global.RootDir, cfg.Global.MountPoint)
	}
	if cfg.Log.Level != "ERROR" {
		t.Errorf("Expected Level to be ERROR, got %s", cfg.Log.Level)
	}
	if cfg.Log.File != "/var/log/blokfs.out" {
		t.Errorf("Expected File to be /var/log/blokfs.out, got %s", cfg.Log.File)
	}
	if cfg.Log.DiagnosticFile != "trace.log" {
		t.Errorf("Expected DiagnosticFile to be trace.log, got %s", cfg.Log.DiagnosticFile)
	}
	if cfg.Log.MaxSizeMB != 16 {
		t.Errorf("Expected MaxSizeMB to be 16, got %d", cfg.Log.MaxSizeMB)
	}
	if !cfg.Mount.ReadOnly {
		t.Error("Expected ReadOnly to be true")
	}
	if !cfg.Mount.AllowOther {
		t.Error("Expected AllowOther to be true")
	}
	if cfg.Mount.Debug {
		t.Error("Expected Debug to be false")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics to be enabled")
	}
	if cfg.Metrics.Address != TestMetricsAddr {
		t.Errorf("Expected metrics address %s, got %s", TestMetricsAddr, cfg.Metrics.Address)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"BLOKFS_LOG_MAX_SIZE_MB": "lots",
		"BLOKFS_READ_ONLY":       "maybe",
		"BLOKFS_METRICS_ENABLED": "yes please",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			cfg := NewDefault()
			err := cfg.LoadFromEnv()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", key, value)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("Expected error to name %s, got %v", key, err)
			}
		})
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "saved_config.yaml")

	cfg := NewDefault()
	cfg.Log.Level = TestDebugLevel
	cfg.Mount.Options = []string{"noatime", "nodev"}

	err := cfg.SaveToFile(configFile)
	if err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	// Load the saved config and verify
	newCfg := NewDefault()
	err = newCfg.LoadFromFile(configFile)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if newCfg.Log.Level != TestDebugLevel {
		t.Errorf("Expected Level to be DEBUG, got %s", newCfg.Log.Level)
	}
	if len(newCfg.Mount.Options) != 2 {
		t.Errorf("Expected two mount options, got %v", newCfg.Mount.Options)
	}
}

func TestSaveToFileCreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := NewDefault()
	err := cfg.SaveToFile(configFile)
	if err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
}
