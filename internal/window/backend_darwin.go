//go:build darwin

package window

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const osascriptTimeout = 5 * time.Second

// windowListScript dumps CGWindowListCopyWindowInfo for all windows as JSON.
// Off-screen windows are included so a hidden application can still be
// found by title. Window titles require the Screen Recording permission.
const windowListScript = `ObjC.import('CoreGraphics');
JSON.stringify(ObjC.deepUnwrap(ObjC.castRefToObject(
  $.CGWindowListCopyWindowInfo($.kCGWindowListOptionAll, $.kCGNullWindowID))));`

type cgWindow struct {
	Number    uint64 `json:"kCGWindowNumber"`
	OwnerPID  int    `json:"kCGWindowOwnerPID"`
	OwnerName string `json:"kCGWindowOwnerName"`
	Name      string `json:"kCGWindowName"`
	Layer     int    `json:"kCGWindowLayer"`
}

// DarwinBackend resolves windows through Quartz and hides/shows the owning
// application via System Events. Handles are owning process ids: macOS hides
// applications, not individual windows.
type DarwinBackend struct {
	logger *slog.Logger
	run    func(ctx context.Context, lang, script string) ([]byte, error)
}

var _ Backend = (*DarwinBackend)(nil)

func newPlatformBackend(logger *slog.Logger) (Backend, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	return &DarwinBackend{logger: logger, run: runOSAScript}, nil
}

func runOSAScript(ctx context.Context, lang, script string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, osascriptTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "osascript", "-l", lang, "-e", script).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("osascript: %w", err)
	}
	return out, nil
}

func (b *DarwinBackend) windows() ([]cgWindow, error) {
	out, err := b.run(context.Background(), "JavaScript", windowListScript)
	if err != nil {
		return nil, err
	}
	var wins []cgWindow
	if err := json.Unmarshal(out, &wins); err != nil {
		return nil, fmt.Errorf("failed to decode window list: %w", err)
	}
	return wins, nil
}

func (b *DarwinBackend) find(match func(cgWindow) bool) (Handle, bool, error) {
	wins, err := b.windows()
	if err != nil {
		return 0, false, err
	}
	for _, w := range wins {
		if match(w) {
			return Handle(w.OwnerPID), true, nil
		}
	}
	return 0, false, nil
}

func (b *DarwinBackend) FindByNative(native uint64) (Handle, bool) {
	h, ok, err := b.find(func(w cgWindow) bool { return w.Number == native })
	if err != nil {
		b.logger.Debug("window number lookup failed", "error", err)
		return 0, false
	}
	return h, ok
}

func (b *DarwinBackend) FindByTitle(title string) (Handle, bool, error) {
	return b.find(func(w cgWindow) bool { return w.Name == title && w.Layer == 0 })
}

func (b *DarwinBackend) FindByPID(pid int) (Handle, bool, error) {
	return b.find(func(w cgWindow) bool { return w.OwnerPID == pid && w.Layer == 0 })
}

func (b *DarwinBackend) setVisible(h Handle, visible bool) error {
	script := fmt.Sprintf(`tell application "System Events" to set visible of (first process whose unix id is %d) to %t`, uint64(h), visible)
	_, err := b.run(context.Background(), "AppleScript", script)
	return err
}

func (b *DarwinBackend) Hide(h Handle) error {
	if !b.Exists(h) {
		return ErrStaleHandle
	}
	return b.setVisible(h, false)
}

// Show unhides the application and makes it frontmost; unhiding alone keeps
// it behind the active application.
func (b *DarwinBackend) Show(h Handle) error {
	if !b.Exists(h) {
		return ErrStaleHandle
	}
	if err := b.setVisible(h, true); err != nil {
		return err
	}
	script := fmt.Sprintf(`tell application "System Events" to set frontmost of (first process whose unix id is %d) to true`, uint64(h))
	if _, err := b.run(context.Background(), "AppleScript", script); err != nil {
		b.logger.Warn("application shown but activation failed", "pid", uint64(h), "error", err)
	}
	return nil
}

func (b *DarwinBackend) Exists(h Handle) bool {
	if h == 0 {
		return false
	}
	err := unix.Kill(int(h), 0)
	return err == nil || err == unix.EPERM
}

func (b *DarwinBackend) List() ([]Info, error) {
	wins, err := b.windows()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(wins))
	for _, w := range wins {
		if w.Layer != 0 {
			continue
		}
		infos = append(infos, Info{
			ID:    w.Number,
			PID:   w.OwnerPID,
			Title: w.Name,
			Owner: w.OwnerName,
		})
	}
	return infos, nil
}

func (b *DarwinBackend) Close() error { return nil }
