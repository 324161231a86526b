// Package config loads the runtime configuration file.
//
// Persisted user preferences (ignore list, login item, monitoring on/off)
// live in the encrypted store, not here. This file holds knobs that are
// edited by hand and read at daemon start.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
)

// Target is the default window geometry.
type Target struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Geometry converts the target to the domain type.
func (t Target) Geometry() domain.Geometry {
	return domain.Geometry{
		Point: domain.Point{X: t.X, Y: t.Y},
		Size:  domain.Size{Width: t.Width, Height: t.Height},
	}
}

// LogConfig controls the daemon log files.
type LogConfig struct {
	Path      string `yaml:"path"`
	ErrorPath string `yaml:"error_path"`
	Level     string `yaml:"level"`
}

// Config is the YAML runtime configuration.
type Config struct {
	Target                   Target        `yaml:"target"`
	Tolerance                float64       `yaml:"tolerance"`     // Pixels; 0 means exact comparison
	VerifyWrites             bool          `yaml:"verify_writes"` // Re-read geometry after writing
	LaunchDelay              time.Duration `yaml:"launch_delay"`
	EventPollInterval        time.Duration `yaml:"event_poll_interval"`
	PermissionPollInterval   time.Duration `yaml:"permission_poll_interval"`
	HeartbeatInterval        time.Duration `yaml:"heartbeat_interval"`
	PreferenceReloadInterval time.Duration `yaml:"preference_reload_interval"`
	LoginItemCheckInterval   time.Duration `yaml:"login_item_check_interval"`
	SeedIgnoredApps          []string      `yaml:"seed_ignored_apps"` // Used only when the store has no ignore list
	Log                      LogConfig     `yaml:"log"`
}

// ValidationError reports the YAML path of an invalid field.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DefaultConfigPath returns ~/.config/winfit/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winfit", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target: Target{
			X:      policy.DefaultX,
			Y:      policy.DefaultY,
			Width:  policy.DefaultWidth,
			Height: policy.DefaultHeight,
		},
		LaunchDelay:              1 * time.Second,
		EventPollInterval:        250 * time.Millisecond,
		PermissionPollInterval:   1 * time.Second,
		HeartbeatInterval:        30 * time.Second,
		PreferenceReloadInterval: 30 * time.Second,
		LoginItemCheckInterval:   60 * time.Second,
		SeedIgnoredApps:          []string{},
		Log: LogConfig{
			Path:      "/var/tmp/winfit.log",
			ErrorPath: "/var/tmp/winfit.error.log",
			Level:     "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks ranges. Intervals must be positive; the launch delay may be zero.
func (c *Config) Validate() error {
	for _, v := range []float64{c.Target.X, c.Target.Y, c.Target.Width, c.Target.Height} {
		if !finite(v) {
			return &ValidationError{Path: "target", Err: fmt.Errorf("coordinates must be finite numbers")}
		}
	}
	if c.Target.Width <= 0 || c.Target.Height <= 0 {
		return &ValidationError{Path: "target", Err: fmt.Errorf("width and height must be > 0")}
	}
	if !finite(c.Tolerance) || c.Tolerance < 0 {
		return &ValidationError{Path: "tolerance", Err: fmt.Errorf("tolerance must be a finite number >= 0")}
	}
	if c.LaunchDelay < 0 {
		return &ValidationError{Path: "launch_delay", Err: fmt.Errorf("launch_delay must be >= 0")}
	}

	intervals := []struct {
		path string
		d    time.Duration
	}{
		{"event_poll_interval", c.EventPollInterval},
		{"permission_poll_interval", c.PermissionPollInterval},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"preference_reload_interval", c.PreferenceReloadInterval},
		{"login_item_check_interval", c.LoginItemCheckInterval},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return &ValidationError{Path: iv.path, Err: fmt.Errorf("%s must be > 0", iv.path)}
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("log.level must be one of: debug, info, warn, error")}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
