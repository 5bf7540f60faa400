package window

import (
	"fmt"
	"strings"
)

// Identifier is a platform-neutral description of which window to manage.
// Zero-valued fields are treated as absent. Identifiers are immutable; use
// the constructors to build one.
type Identifier struct {
	title     string
	processID int
	windowID  uint64
	handle    uint64
}

// NewIdentifier builds an identifier from any combination of fields.
func NewIdentifier(title string, processID int, windowID, handle uint64) Identifier {
	return Identifier{
		title:     title,
		processID: processID,
		windowID:  windowID,
		handle:    handle,
	}
}

// ByTitle matches a window by exact title.
func ByTitle(title string) Identifier { return Identifier{title: title} }

// ByProcessID matches the first window owned by pid.
func ByProcessID(pid int) Identifier { return Identifier{processID: pid} }

// ByWindowID matches an X11 window id or a macOS window number.
func ByWindowID(id uint64) Identifier { return Identifier{windowID: id} }

// ByHandle matches a native Windows HWND.
func ByHandle(handle uint64) Identifier { return Identifier{handle: handle} }

func (id Identifier) Title() string { return id.title }
func (id Identifier) ProcessID() int { return id.processID }
func (id Identifier) WindowID() uint64 { return id.windowID }
func (id Identifier) NativeHandle() uint64 { return id.handle }

// IsZero reports whether no field is populated.
func (id Identifier) IsZero() bool {
	return id.title == "" && id.processID == 0 && id.windowID == 0 && id.handle == 0
}

func (id Identifier) String() string {
	var parts []string
	if id.title != "" {
		parts = append(parts, fmt.Sprintf("title=%q", id.title))
	}
	if id.processID != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", id.processID))
	}
	if id.windowID != 0 {
		parts = append(parts, fmt.Sprintf("window_id=%d", id.windowID))
	}
	if id.handle != 0 {
		parts = append(parts, fmt.Sprintf("handle=%#x", id.handle))
	}
	if len(parts) == 0 {
		return "window(<empty>)"
	}
	return "window(" + strings.Join(parts, " ") + ")"
}

// PlatformIdentifier carries only the fields one backend understands.
// Native is the HWND on Windows, the X11 window id on Linux and the window
// number on macOS.
type PlatformIdentifier struct {
	Platform  string
	Title     string
	ProcessID int
	Native    uint64
}

// ToPlatform narrows id to the fields understood by goos.
func (id Identifier) ToPlatform(goos string) (PlatformIdentifier, error) {
	pi := PlatformIdentifier{
		Platform:  goos,
		Title:     id.title,
		ProcessID: id.processID,
	}
	switch goos {
	case "windows":
		pi.Native = id.handle
	case "linux", "darwin":
		pi.Native = id.windowID
	default:
		return PlatformIdentifier{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return pi, nil
}
