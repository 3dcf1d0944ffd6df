// Package config defines the coordination layer's configuration, loaded via
// viper from a YAML file and COORDINO_-prefixed environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete coordino configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Lock    LockConfig    `mapstructure:"lock"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PathsConfig controls where state files live and how they are named
type PathsConfig struct {
	// ScratchDir is the directory holding all state and lock files
	// (default: the OS temp directory)
	ScratchDir string `mapstructure:"scratch_dir"`
	// Namespace is the product prefix on every state file name
	Namespace string `mapstructure:"namespace"`
	// Extension is the state-file extension including the dot
	Extension string `mapstructure:"extension"`
	// LegacyGraceWindowMinutes is how long a pre-session-isolation file
	// stays preferred over a fresh session-scoped one (default: 60)
	LegacyGraceWindowMinutes int `mapstructure:"legacy_grace_window_minutes"`
}

// LockConfig controls the advisory lock protocol
type LockConfig struct {
	// ReadTimeoutMs bounds the lock wait for reads; reads favor low
	// latency and degrade to unlocked reads on timeout (default: 1000)
	ReadTimeoutMs int `mapstructure:"read_timeout_ms"`
	// WriteTimeoutMs bounds the lock wait for writes (default: 3000)
	WriteTimeoutMs int `mapstructure:"write_timeout_ms"`
	// StaleThresholdMs is the lock age past which it is presumed
	// abandoned and reclaimed (default: 10000)
	StaleThresholdMs int `mapstructure:"stale_threshold_ms"`
	// RetryIntervalMs is the sleep between acquisition attempts (default: 50)
	RetryIntervalMs int `mapstructure:"retry_interval_ms"`
}

// SweepConfig controls caller-invoked maintenance operations
type SweepConfig struct {
	// MaxAgeHours is the default age cutoff for sweeping session-scoped
	// state files (default: 24)
	MaxAgeHours int `mapstructure:"max_age_hours"`
	// ActiveTTLMinutes is the default window for considering a peer
	// session active (default: 60)
	ActiveTTLMinutes int `mapstructure:"active_ttl_minutes"`
}

// LoggingConfig controls diagnostic logging
type LoggingConfig struct {
	// Level is the minimum level to log: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is where the log file is written; empty means stderr
	Dir string `mapstructure:"dir"`
}

// DefaultConfig returns a Config with all default values
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ScratchDir:               os.TempDir(),
			Namespace:                "coordino",
			Extension:                ".json",
			LegacyGraceWindowMinutes: 60,
		},
		Lock: LockConfig{
			ReadTimeoutMs:    1000,
			WriteTimeoutMs:   3000,
			StaleThresholdMs: 10000,
			RetryIntervalMs:  50,
		},
		Sweep: SweepConfig{
			MaxAgeHours:      24,
			ActiveTTLMinutes: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers all default values with viper
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("paths.scratch_dir", defaults.Paths.ScratchDir)
	viper.SetDefault("paths.namespace", defaults.Paths.Namespace)
	viper.SetDefault("paths.extension", defaults.Paths.Extension)
	viper.SetDefault("paths.legacy_grace_window_minutes", defaults.Paths.LegacyGraceWindowMinutes)

	viper.SetDefault("lock.read_timeout_ms", defaults.Lock.ReadTimeoutMs)
	viper.SetDefault("lock.write_timeout_ms", defaults.Lock.WriteTimeoutMs)
	viper.SetDefault("lock.stale_threshold_ms", defaults.Lock.StaleThresholdMs)
	viper.SetDefault("lock.retry_interval_ms", defaults.Lock.RetryIntervalMs)

	viper.SetDefault("sweep.max_age_hours", defaults.Sweep.MaxAgeHours)
	viper.SetDefault("sweep.active_ttl_minutes", defaults.Sweep.ActiveTTLMinutes)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load unmarshals the current viper state into a Config
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the directory searched for the config file
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "coordino")
}

// Duration accessors. The file format keeps integer fields with explicit
// units; call sites want time.Duration.

// ReadTimeout returns the lock wait budget for reads.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Lock.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the lock wait budget for writes.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Lock.WriteTimeoutMs) * time.Millisecond
}

// StaleThreshold returns the lock age past which reclaim is allowed.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.Lock.StaleThresholdMs) * time.Millisecond
}

// RetryInterval returns the sleep between lock acquisition attempts.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Lock.RetryIntervalMs) * time.Millisecond
}

// LegacyGraceWindow returns how long legacy state files stay preferred.
func (c *Config) LegacyGraceWindow() time.Duration {
	return time.Duration(c.Paths.LegacyGraceWindowMinutes) * time.Minute
}

// SweepMaxAge returns the default sweep age cutoff.
func (c *Config) SweepMaxAge() time.Duration {
	return time.Duration(c.Sweep.MaxAgeHours) * time.Hour
}

// ActiveTTL returns the default active-peer window.
func (c *Config) ActiveTTL() time.Duration {
	return time.Duration(c.Sweep.ActiveTTLMinutes) * time.Minute
}
