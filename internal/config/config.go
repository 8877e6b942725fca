package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/blokfs/blokfs/pkg/errors"
	"github.com/blokfs/blokfs/pkg/utils"
)

// DefaultDiagnosticLog is the diagnostic trace file, relative to the working directory
const DefaultDiagnosticLog = "blokfs.log"

// Configuration represents the complete application configuration
type Configuration struct {
	Global  GlobalConfig  `yaml:"global"`
	Mount   MountConfig   `yaml:"mount"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GlobalConfig holds the two directories a mount joins
type GlobalConfig struct {
	RootDir    string `yaml:"root_dir"`
	MountPoint string `yaml:"mount_point"`
}

// MountConfig represents FUSE mount settings
type MountConfig struct {
	ReadOnly           bool          `yaml:"read_only"`
	AllowOther         bool          `yaml:"allow_other"`
	AllowRoot          bool          `yaml:"allow_root"`
	DefaultPermissions bool          `yaml:"default_permissions"`
	Debug              bool          `yaml:"debug"`
	FSName             string        `yaml:"fsname" validate:"required"`
	Subtype            string        `yaml:"subtype"`
	MaxWrite           uint32        `yaml:"max_write" validate:"min=4096,max=1048576"`
	AttrTimeout        time.Duration `yaml:"attr_timeout" validate:"min=0"`
	EntryTimeout       time.Duration `yaml:"entry_timeout" validate:"min=0"`
	Options            []string      `yaml:"options"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level          string `yaml:"level" validate:"required,oneof=TRACE DEBUG INFO WARN WARNING ERROR FATAL"`
	File           string `yaml:"file"`
	DiagnosticFile string `yaml:"diagnostic_file" validate:"required"`
	MaxSizeMB      int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups     int    `yaml:"max_backups" validate:"min=0"`
	Compress       bool   `yaml:"compress"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Mount: MountConfig{
			FSName:   "blokfs",
			Subtype:  "blokfs",
			MaxWrite: 128 * 1024,
		},
		Log: LogConfig{
			Level:          "INFO",
			DiagnosticFile: DefaultDiagnosticLog,
			MaxBackups:     3,
			Compress:       true,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   "127.0.0.1:9464",
			Namespace: "blokfs",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to read config file", err).
			WithContext("file", filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to parse config file", err).
			WithContext("file", filename)
	}

	c.normalize()
	return nil
}

// LoadFromEnv loads configuration from BLOKFS_* environment variables
func (c *Configuration) LoadFromEnv() error {
	// Global settings
	if val := os.Getenv("BLOKFS_ROOT_DIR"); val != "" {
		c.Global.RootDir = val
	}
	if val := os.Getenv("BLOKFS_MOUNT_POINT"); val != "" {
		c.Global.MountPoint = val
	}

	// Log settings
	if val := os.Getenv("BLOKFS_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("BLOKFS_LOG_FILE"); val != "" {
		c.Log.File = val
	}
	if val := os.Getenv("BLOKFS_DIAGNOSTIC_LOG"); val != "" {
		c.Log.DiagnosticFile = val
	}
	if val := os.Getenv("BLOKFS_LOG_MAX_SIZE_MB"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return envError("BLOKFS_LOG_MAX_SIZE_MB", val, err)
		}
		c.Log.MaxSizeMB = size
	}

	// Mount settings
	for name, target := range map[string]*bool{
		"BLOKFS_READ_ONLY":   &c.Mount.ReadOnly,
		"BLOKFS_ALLOW_OTHER": &c.Mount.AllowOther,
		"BLOKFS_DEBUG":       &c.Mount.Debug,
	} {
		if val := os.Getenv(name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return envError(name, val, err)
			}
			*target = b
		}
	}

	// Metrics settings
	if val := os.Getenv("BLOKFS_METRICS_ENABLED"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return envError("BLOKFS_METRICS_ENABLED", val, err)
		}
		c.Metrics.Enabled = b
	}
	if val := os.Getenv("BLOKFS_METRICS_ADDR"); val != "" {
		c.Metrics.Address = val
	}

	c.normalize()
	return nil
}

func envError(name, val string, err error) error {
	return errors.Wrap(errors.ErrCodeInvalidConfig, fmt.Sprintf("invalid value %q for %s", val, name), err).
		WithContext("variable", name).
		WithContext("value", val)
}

func (c *Configuration) normalize() {
	c.Log.Level = strings.ToUpper(strings.TrimSpace(c.Log.Level))
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to create config directory", err).
			WithContext("file", filename)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to write config file", err).
			WithContext("file", filename)
	}

	return nil
}

// Validate validates the configuration using struct tags and the rules tags cannot express
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return c.validateCustomRules()
}

func (c *Configuration) validateCustomRules() error {
	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			return errors.Wrap(errors.ErrCodeConfigValidation, "metrics.address must be host:port", err).
				WithContext("address", c.Metrics.Address)
		}
	}

	root, mountPoint := c.Global.RootDir, c.Global.MountPoint
	if root == "" || mountPoint == "" {
		return nil
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "cannot resolve root_dir", err)
	}
	absMount, err := filepath.Abs(mountPoint)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "cannot resolve mount_point", err)
	}
	if utils.IsWithinBase(absRoot, absMount) {
		return errors.NewError(errors.ErrCodeConfigValidation,
			fmt.Sprintf("mount point %s lies inside root %s", mountPoint, root))
	}

	return nil
}
