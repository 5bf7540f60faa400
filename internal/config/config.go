package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTrayName          = "Min2Tray"
	DefaultWarmupDelay       = time.Second
	DefaultTerminateTimeout  = 5 * time.Second
	DefaultReconcileInterval = 0
)

// Config holds persisted user defaults. Command-line flags override every
// field; visibility state is never stored.
type Config struct {
	Hotkey            string        `yaml:"hotkey"`
	IconImage         string        `yaml:"icon_image"`
	StartMinimized    bool          `yaml:"start_minimized"`
	TrayName          string        `yaml:"tray_name"`
	TrayTitle         string        `yaml:"tray_title"`
	WarmupDelay       time.Duration `yaml:"warmup_delay"`
	TerminateTimeout  time.Duration `yaml:"terminate_timeout"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	LogLevel          string        `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		TrayName:          DefaultTrayName,
		WarmupDelay:       DefaultWarmupDelay,
		TerminateTimeout:  DefaultTerminateTimeout,
		ReconcileInterval: DefaultReconcileInterval,
		LogLevel:          "info",
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TrayName) == "" {
		return &ValidationError{Path: "tray_name", Err: fmt.Errorf("tray_name must not be empty")}
	}
	if c.WarmupDelay < 0 {
		return &ValidationError{Path: "warmup_delay", Err: fmt.Errorf("warmup_delay must be >= 0")}
	}
	if c.TerminateTimeout <= 0 {
		return &ValidationError{Path: "terminate_timeout", Err: fmt.Errorf("terminate_timeout must be > 0")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	if c.ReconcileInterval > 0 && c.ReconcileInterval < 100*time.Millisecond {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be 0 (disabled) or at least 100ms")}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	return nil
}

// IconPath returns icon_image with a leading ~ expanded.
func (c *Config) IconPath() string {
	return expandHome(c.IconImage)
}

// SlogLevel returns the slog level for log_level. Invalid levels map to Info;
// Validate rejects them earlier.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLogLevel maps debug, info, warn/warning and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of: debug, info, warning, error (got %q)", s)
	}
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path, creating parent directories.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
