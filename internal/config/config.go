// Package config provides configuration loading, validation, and management.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jontk/permd/internal/errors"
	"github.com/jontk/permd/internal/fileperms"
)

// Config represents the daemon configuration. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	WatchDirs         []string  `mapstructure:"watchDirs" yaml:"watchDirs"`
	IgnoreDirs        []string  `mapstructure:"ignoreDirs" yaml:"ignoreDirs"`
	DesiredPermission string    `mapstructure:"desiredPermission" yaml:"desiredPermission"`
	Interval          string    `mapstructure:"interval" yaml:"interval"`
	SettleWindow      string    `mapstructure:"settleWindow" yaml:"settleWindow"`
	Log               LogConfig `mapstructure:"log" yaml:"log"`

	// Source is the path of the file this configuration was read from,
	// or empty when the built-in defaults were used.
	Source string `mapstructure:"-" yaml:"-"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig returns a configuration with sensible defaults
// NOTE: These values must match setDefaults() to ensure consistent behavior
func DefaultConfig() *Config {
	return &Config{
		WatchDirs:         []string{"./testdir"},
		IgnoreDirs:        []string{"./testdir/ignoreme"},
		DesiredPermission: "777",
		Interval:          "1h",
		SettleWindow:      "100ms",
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(os.TempDir(), "permd.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Load reads configuration from file and environment. If no
// configuration file exists anywhere on the search path, one is
// written with the defaults and the defaults are used for this run.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from a specific file path
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config search paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.permd")
		v.AddConfigPath("/etc/permd")
	}

	// Environment variable support
	v.SetEnvPrefix("PERMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound || os.IsNotExist(err) {
			// First run: persist the defaults so the operator has a
			// file to edit, then proceed with them.
			if writeErr := writeDefaultConfig(configPath); writeErr != nil {
				return nil, errors.Wrap(writeErr, errors.ErrorTypeConfiguration, "failed to write default config")
			}
		} else {
			return nil, errors.ConfigLoad(v.ConfigFileUsed(), err)
		}
	}

	// Create config struct
	cfg := &Config{}

	// Unmarshal configuration
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigLoad(v.ConfigFileUsed(), err)
	}

	cfg.Source = v.ConfigFileUsed()

	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("watchDirs", []string{"./testdir"})
	v.SetDefault("ignoreDirs", []string{"./testdir/ignoreme"})
	v.SetDefault("desiredPermission", "777")
	v.SetDefault("interval", "1h")
	v.SetDefault("settleWindow", "100ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(os.TempDir(), "permd.log"))
	v.SetDefault("log.maxSizeMB", 10)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 7)
	v.SetDefault("log.compress", true)
}

// DefaultPath returns the location where a fresh config file is written
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".permd", "config.yaml")
}

// writeDefaultConfig writes the default configuration to path, or to
// DefaultPath when path is empty.
func writeDefaultConfig(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), fileperms.ConfigDir); err != nil {
		return err
	}
	return DefaultConfig().SaveToFile(path)
}

// SaveToFile saves the configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to marshal config")
	}
	return os.WriteFile(path, data, fileperms.ConfigFile)
}

// Mode returns the target permission mode parsed from DesiredPermission
func (c *Config) Mode() (os.FileMode, error) {
	return fileperms.Parse(c.DesiredPermission)
}

// IntervalDuration returns the periodic check interval
func (c *Config) IntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.Interval)
}

// SettleDuration returns the debounce settle window
func (c *Config) SettleDuration() (time.Duration, error) {
	return time.ParseDuration(c.SettleWindow)
}
