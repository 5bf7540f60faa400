package config

import "time"

// RawConfig mirrors Config with pointer fields so the loader can tell an
// explicit zero from an absent key.
type RawConfig struct {
	Hotkey            *string        `yaml:"hotkey"`
	IconImage         *string        `yaml:"icon_image"`
	StartMinimized    *bool          `yaml:"start_minimized"`
	TrayName          *string        `yaml:"tray_name"`
	TrayTitle         *string        `yaml:"tray_title"`
	WarmupDelay       *time.Duration `yaml:"warmup_delay"`
	TerminateTimeout  *time.Duration `yaml:"terminate_timeout"`
	ReconcileInterval *time.Duration `yaml:"reconcile_interval"`
	LogLevel          *string        `yaml:"log_level"`
}
