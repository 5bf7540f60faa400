//go:build linux

package window

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/1broseidon/min2tray/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend drives X11 windows over an xgbutil connection.
type LinuxBackend struct {
	conn   *x11.Connection
	logger *slog.Logger
}

var _ Backend = (*LinuxBackend)(nil)

func newPlatformBackend(logger *slog.Logger) (Backend, error) {
	return NewLinuxBackendFromDisplay(logger)
}

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, logger *slog.Logger) *LinuxBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinuxBackend{conn: conn, logger: logger}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection on $DISPLAY.
func NewLinuxBackendFromDisplay(logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, logger), nil
}

func (b *LinuxBackend) FindByNative(native uint64) (Handle, bool) {
	conn, err := b.connection()
	if err != nil {
		return 0, false
	}
	win := xproto.Window(native)
	if !conn.WindowExists(win) {
		return 0, false
	}
	return Handle(win), true
}

func (b *LinuxBackend) FindByTitle(title string) (Handle, bool, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, false, err
	}
	win, ok, err := conn.FindWindowByTitle(title)
	return Handle(win), ok, err
}

func (b *LinuxBackend) FindByPID(pid int) (Handle, bool, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, false, err
	}
	win, ok, err := conn.FindWindowByPID(pid)
	return Handle(win), ok, err
}

// Hide unmaps the window, which also removes it from the taskbar.
func (b *LinuxBackend) Hide(h Handle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if !conn.WindowExists(xproto.Window(h)) {
		return ErrStaleHandle
	}
	return conn.UnmapWindow(xproto.Window(h))
}

// Show maps the window and asks the window manager to activate it. Mapping
// alone leaves the window behind whatever currently has focus.
func (b *LinuxBackend) Show(h Handle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	win := xproto.Window(h)
	if !conn.WindowExists(win) {
		return ErrStaleHandle
	}
	if err := conn.MapWindow(win); err != nil {
		return err
	}
	if err := conn.FocusWindow(win); err != nil {
		b.logger.Warn("window mapped but activation failed", "window", uint32(win), "error", err)
	}
	return nil
}

func (b *LinuxBackend) Exists(h Handle) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.WindowExists(xproto.Window(h))
}

// List returns normal client windows sorted by id.
func (b *LinuxBackend) List() ([]Info, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(clients))
	for _, win := range clients {
		if !conn.IsNormalWindow(win) {
			continue
		}
		pid, _ := conn.WindowPID(win)
		infos = append(infos, Info{
			ID:    uint64(win),
			PID:   pid,
			Title: conn.WindowTitle(win),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Close disconnects from the X server.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
