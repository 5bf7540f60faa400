//go:build linux

package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/min2tray/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

const listenerStopTimeout = 2 * time.Second

// x11Listener grabs chords on the root window of a private X connection and
// runs its own xevent loop.
type x11Listener struct {
	logger *slog.Logger

	mu   sync.Mutex
	conn *x11.Connection
	wake xproto.Window
	done chan struct{}
}

func newPlatformListener(logger *slog.Logger) (Listener, error) {
	return &x11Listener{logger: logger}, nil
}

func (l *x11Listener) Start(chords []Chord, emit func(KeyEvent)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return fmt.Errorf("listener already started")
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	configureIgnoreMods(conn.XUtil)

	wake, err := conn.NewWakeWindow()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create wake window: %w", err)
	}

	keycodes := make(map[xproto.Keycode][]Chord)
	for _, c := range chords {
		c := c
		err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
			emit(KeyEvent{Mods: c.Mods, Key: c.Key, Down: true})
		}).Connect(conn.XUtil, conn.Root, c.X11(), true)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to grab %s: %w", c, err)
		}
		for _, code := range keybind.StrToKeycodes(conn.XUtil, c.Keysym()) {
			keycodes[code] = append(keycodes[code], c)
		}
	}

	// Releases are matched on keycode alone: the modifiers may already be up
	// by the time the chord key is released.
	xevent.KeyReleaseFun(func(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		for _, c := range keycodes[ev.Detail] {
			emit(KeyEvent{Key: c.Key, Down: false})
		}
	}).Connect(conn.XUtil, conn.Root)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("panic in X11 hotkey loop", "panic", r)
			}
		}()
		conn.EventLoop()
	}()

	l.conn = conn
	l.wake = wake
	l.done = done
	return nil
}

func (l *x11Listener) Stop() error {
	l.mu.Lock()
	conn, wake, done := l.conn, l.wake, l.done
	l.conn, l.done = nil, nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.Quit()
	if err := conn.Wake(wake); err != nil {
		l.logger.Warn("failed to wake X11 hotkey loop", "error", err)
	}

	select {
	case <-done:
		conn.Close()
		return nil
	case <-time.After(listenerStopTimeout):
		// The connection is left open: closing it under a blocked loop
		// terminates the process.
		l.logger.Warn("X11 hotkey loop did not exit in time")
		return fmt.Errorf("hotkey event loop stop timed out")
	}
}

// configureIgnoreMods makes grabs fire regardless of CapsLock, NumLock and
// ScrollLock state.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	ignore := []uint16{0}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
