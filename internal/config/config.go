// Package config loads and validates sharedash configuration.
//
// Configuration hierarchy:
//  1. Hardcoded defaults (NewConfig)
//  2. Config file (sharedash.yaml, or --config)
//  3. Environment variables (SHAREDASH_*)
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "sharedash.yaml"

// Config is the complete sharedash configuration.
type Config struct {
	Version int `yaml:"version" json:"version"`

	// SharedRoot is the directory tree under management. All tracked
	// paths are relative to it.
	SharedRoot string `yaml:"shared_root" json:"shared_root" validate:"required"`

	// DataDir holds the metadata database, the analytics cache, the
	// rescan lock and logs. Must not live inside SharedRoot.
	DataDir string `yaml:"data_dir" json:"data_dir" validate:"required"`

	Scan      ScanConfig      `yaml:"scan" json:"scan"`
	Editor    EditorConfig    `yaml:"editor" json:"editor"`
	Analytics AnalyticsConfig `yaml:"analytics" json:"analytics"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ScanConfig configures the directory scanner.
type ScanConfig struct {
	// Exclude lists glob-style patterns skipped during the walk,
	// in addition to hidden (dot-prefixed) entries.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// Workers bounds the number of subtrees walked concurrently.
	// Zero means runtime.NumCPU().
	Workers int `yaml:"workers" json:"workers" validate:"gte=0"`
}

// EditorConfig configures the in-browser content editor limits.
type EditorConfig struct {
	// AllowedTypes is the extension allowlist for editable files
	// (lowercase, no dot).
	AllowedTypes []string `yaml:"allowed_types" json:"allowed_types" validate:"min=1"`
	// MaxSizeBytes caps the size of editable content.
	MaxSizeBytes int64 `yaml:"max_size_bytes" json:"max_size_bytes" validate:"gt=0"`
}

// AnalyticsConfig configures snapshot computation.
type AnalyticsConfig struct {
	// HotFilesMax is the number of entries in the hot-files list.
	HotFilesMax int `yaml:"hot_files_max" json:"hot_files_max" validate:"gt=0"`
	// HotFilesMinAccess is the minimum access count for a file to be
	// considered hot.
	HotFilesMinAccess int64 `yaml:"hot_files_min_access" json:"hot_files_min_access" validate:"gte=0"`
	// FlushInterval is how often coalesced recompute requests are
	// flushed (e.g. "5s").
	FlushInterval string `yaml:"flush_interval" json:"flush_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	// File overrides the default log path under DataDir.
	File string `yaml:"file" json:"file"`
}

// DefaultFlushInterval is used when analytics.flush_interval is unset
// or unparseable.
const DefaultFlushInterval = 5 * time.Second

// NewConfig returns a Config populated with defaults. SharedRoot has no
// default and must come from file, env, or flag.
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Version: 1,
		DataDir: filepath.Join(home, ".sharedash"),
		Scan: ScanConfig{
			Exclude: []string{"**/Thumbs.db", "**/desktop.ini", "**/~$*"},
		},
		Editor: EditorConfig{
			AllowedTypes: []string{"txt", "csv", "md", "py", "json", "html", "js", "css", "log"},
			MaxSizeBytes: 2 * 1024 * 1024,
		},
		Analytics: AnalyticsConfig{
			HotFilesMax:       10,
			HotFilesMinAccess: 1,
			FlushInterval:     "5s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from path (or DefaultFileName when path is
// empty), applies environment overrides, and validates the result.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, derrors.ConfigError("parse "+path, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return nil, derrors.New(derrors.ErrCodeConfigNotFound, "config file not found: "+path, err)
		}
	default:
		return nil, derrors.ConfigError("read "+path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SHAREDASH_* environment variables.
// Env vars take priority over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHAREDASH_SHARED_ROOT"); v != "" {
		c.SharedRoot = v
	}
	if v := os.Getenv("SHAREDASH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SHAREDASH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SHAREDASH_HOT_FILES_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Analytics.HotFilesMax = n
		}
	}
	if v := os.Getenv("SHAREDASH_MAX_EDIT_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Editor.MaxSizeBytes = n
		}
	}
	if v := os.Getenv("SHAREDASH_FLUSH_INTERVAL"); v != "" {
		c.Analytics.FlushInterval = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return derrors.ConfigError("invalid configuration", err)
	}
	if c.Analytics.FlushInterval != "" {
		if _, err := time.ParseDuration(c.Analytics.FlushInterval); err != nil {
			return derrors.ConfigError("invalid analytics.flush_interval: "+c.Analytics.FlushInterval, err)
		}
	}
	return nil
}

// FlushInterval returns the parsed analytics flush interval, falling
// back to DefaultFlushInterval.
func (c *Config) FlushInterval() time.Duration {
	if c.Analytics.FlushInterval == "" {
		return DefaultFlushInterval
	}
	d, err := time.ParseDuration(c.Analytics.FlushInterval)
	if err != nil || d <= 0 {
		return DefaultFlushInterval
	}
	return d
}

// LogFile returns the configured log path, defaulting under DataDir.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "logs", "sharedash.log")
}

// MetadataPath is the SQLite database location.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.DataDir, "metadata.db")
}

// AnalyticsPath is the Badger analytics cache location.
func (c *Config) AnalyticsPath() string {
	return filepath.Join(c.DataDir, "analytics")
}
