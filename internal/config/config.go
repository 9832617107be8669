// Package config loads the YAML configuration with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBrokerDomain   = "amazonaws.com"
	defaultRegion         = "us-east-1"
	defaultRequestTimeout = 10 * time.Second
	defaultGraceWindow    = 30 * time.Minute
)

// Config is the full application configuration. Durations are strings in
// the file ("10s", "30m") and parsed by the accessor methods.
type Config struct {
	BrokerDomain   string `yaml:"broker_domain"`
	DefaultRegion  string `yaml:"default_region"`
	RequestTimeout string `yaml:"request_timeout"`
	GraceWindow    string `yaml:"grace_window"`
	Paths          Paths  `yaml:"paths"`
}

// Paths collects every filesystem location the manager touches, so tests
// can point the whole system at temp directories.
type Paths struct {
	AccountsDir       string `yaml:"accounts_dir"`
	ActiveSessionFile string `yaml:"active_session_file"`
	RegistrationsDir  string `yaml:"registrations_dir"`
	DeviceIDFile      string `yaml:"device_id_file"`
	BackupsDir        string `yaml:"backups_dir"`
	StatsDB           string `yaml:"stats_db"`
}

// Default returns the built-in configuration rooted under ~/.accshift.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := filepath.Join(home, ".accshift")

	return &Config{
		BrokerDomain:  defaultBrokerDomain,
		DefaultRegion: defaultRegion,
		Paths: Paths{
			AccountsDir:       filepath.Join(root, "accounts"),
			ActiveSessionFile: filepath.Join(root, "active-session.json"),
			RegistrationsDir:  filepath.Join(root, "registrations"),
			DeviceIDFile:      filepath.Join(root, "device-id"),
			BackupsDir:        filepath.Join(root, "backups"),
			StatsDB:           filepath.Join(root, "stats.db"),
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; a malformed one is. ACCSHIFT_BROKER_DOMAIN and ACCSHIFT_REGION
// override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("ACCSHIFT_BROKER_DOMAIN"); v != "" {
		cfg.BrokerDomain = v
	}
	if v := os.Getenv("ACCSHIFT_REGION"); v != "" {
		cfg.DefaultRegion = v
	}

	if _, err := cfg.ParsedRequestTimeout(); err != nil {
		return nil, err
	}
	if _, err := cfg.ParsedGraceWindow(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsedRequestTimeout returns the per-call network timeout.
func (c *Config) ParsedRequestTimeout() (time.Duration, error) {
	return parseDuration("request_timeout", c.RequestTimeout, defaultRequestTimeout)
}

// ParsedGraceWindow returns how long past expiresAt a stored token may
// still be activated when a refresh fails transiently.
func (c *Config) ParsedGraceWindow() (time.Duration, error) {
	return parseDuration("grace_window", c.GraceWindow, defaultGraceWindow)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
