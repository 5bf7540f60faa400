//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	pmNoRemove = 0x0000

	modAlt      = 0x0001
	modControl  = 0x0002
	modShift    = 0x0004
	modWin      = 0x0008
	modNoRepeat = 0x4000

	listenerStopTimeout = 2 * time.Second
)

type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct; the layout must not change.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type loopReady struct {
	threadID uint32
	err      error
}

// winListener registers every chord with RegisterHotKey on one locked OS
// thread and pumps its message queue until WM_QUIT.
type winListener struct {
	logger *slog.Logger

	mu       sync.Mutex
	threadID uint32
	done     chan struct{}
}

func newPlatformListener(logger *slog.Logger) (Listener, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	return &winListener{logger: logger}, nil
}

func (l *winListener) Start(chords []Chord, emit func(KeyEvent)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return errors.New("listener already started")
	}

	readyCh := make(chan loopReady, 1)
	done := make(chan struct{})
	go l.loop(chords, emit, readyCh, done)

	ready := <-readyCh
	if ready.err != nil {
		<-done
		return ready.err
	}
	l.threadID = ready.threadID
	l.done = done
	return nil
}

func (l *winListener) loop(chords []Chord, emit func(KeyEvent), readyCh chan<- loopReady, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	threadID := windows.GetCurrentThreadId()

	// Forces creation of the thread message queue so PostThreadMessageW can
	// deliver WM_QUIT.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	registered := make([]int32, 0, len(chords))
	defer func() {
		for _, id := range registered {
			if err := unregisterHotKey(id); err != nil {
				l.logger.Warn("UnregisterHotKey failed", "id", id, "error", err)
			}
		}
	}()

	for i, c := range chords {
		id := int32(i + 1)
		if err := registerHotKey(id, winModifiers(c.Mods), c.VirtualKey()); err != nil {
			readyCh <- loopReady{err: fmt.Errorf("RegisterHotKey %s: %w", c, err)}
			return
		}
		registered = append(registered, id)
	}
	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			l.logger.Warn("GetMessageW failed, exiting hotkey loop", "error", lastErr)
			return
		case 0:
			return
		}

		if msg.message == wmHotkey {
			idx := int(msg.wParam) - 1
			if idx >= 0 && idx < len(chords) {
				c := chords[idx]
				// WM_HOTKEY has no release counterpart; MOD_NOREPEAT already
				// suppresses auto-repeat.
				emit(KeyEvent{Mods: c.Mods, Key: c.Key, Down: true})
				emit(KeyEvent{Key: c.Key, Down: false})
			}
			continue
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func (l *winListener) Stop() error {
	l.mu.Lock()
	threadID, done := l.threadID, l.done
	l.threadID, l.done = 0, nil
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	stopErr := postQuit(threadID)
	select {
	case <-done:
	case <-time.After(listenerStopTimeout):
		l.logger.Warn("hotkey message loop did not exit in time", "thread", threadID)
		stopErr = errors.Join(stopErr, errors.New("hotkey message loop stop timed out"))
	}
	return stopErr
}

func winModifiers(m Modifier) uint32 {
	mods := uint32(modNoRepeat)
	if m&ModAlt != 0 {
		mods |= modAlt
	}
	if m&ModCtrl != 0 {
		mods |= modControl
	}
	if m&ModShift != 0 {
		mods |= modShift
	}
	if m&ModSuper != 0 {
		mods |= modWin
	}
	return mods
}

func registerHotKey(id int32, modifiers, key uint32) error {
	res, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(modifiers), uintptr(key))
	if res != 0 {
		return nil
	}
	return callErr(err, "RegisterHotKey")
}

func unregisterHotKey(id int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if res != 0 {
		return nil
	}
	return callErr(err, "UnregisterHotKey")
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	return callErr(err, "PostThreadMessageW")
}

func callErr(err error, name string) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return err
}
