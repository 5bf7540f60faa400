package window

import (
	"errors"
	"log/slog"
)

// Handle is an opaque native window reference produced by a Backend: an HWND
// on Windows, an X11 window id on Linux, the owning process id on macOS.
type Handle uint64

// Info describes one top-level window as reported by a Backend. ID is the
// value to pass to ByHandle (Windows) or ByWindowID (Linux, macOS).
type Info struct {
	ID    uint64 `json:"id"`
	PID   int    `json:"pid"`
	Title string `json:"title"`
	Owner string `json:"owner,omitempty"`
}

var (
	// ErrUnsupportedPlatform is returned when the running OS has no backend.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNotResolved is returned by Toggle before FindWindow has succeeded.
	ErrNotResolved = errors.New("window not resolved")

	// ErrStaleHandle is reported by backends when a cached handle no longer
	// refers to a live window.
	ErrStaleHandle = errors.New("stale window handle")
)

// Backend abstracts the native window primitives of one platform.
type Backend interface {
	FindByNative(native uint64) (Handle, bool)
	FindByTitle(title string) (Handle, bool, error)
	FindByPID(pid int) (Handle, bool, error)
	Hide(h Handle) error
	Show(h Handle) error
	Exists(h Handle) bool
	List() ([]Info, error)
	Close() error
}

// NewPlatformBackend opens the backend for the running OS.
func NewPlatformBackend(logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return newPlatformBackend(logger)
}

// List enumerates top-level windows on the running platform.
func List() ([]Info, error) {
	b, err := NewPlatformBackend(nil)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.List()
}
