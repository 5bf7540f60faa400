package config

import (
	"errors"
	"fmt"
)

// ValidationError points at the offending YAML key and, when known, the
// file position it was read from.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// BuildEffectiveConfig overlays raw onto DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Hotkey != nil {
		cfg.Hotkey = *raw.Hotkey
	}
	if raw.IconImage != nil {
		cfg.IconImage = *raw.IconImage
	}
	if raw.StartMinimized != nil {
		cfg.StartMinimized = *raw.StartMinimized
	}
	if raw.TrayName != nil {
		cfg.TrayName = *raw.TrayName
	}
	if raw.TrayTitle != nil {
		cfg.TrayTitle = *raw.TrayTitle
	}
	if raw.WarmupDelay != nil {
		cfg.WarmupDelay = *raw.WarmupDelay
	}
	if raw.TerminateTimeout != nil {
		cfg.TerminateTimeout = *raw.TerminateTimeout
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	return cfg
}
