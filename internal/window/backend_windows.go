//go:build windows

package window

import (
	"errors"
	"log/slog"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procFindWindowW              = user32.NewProc("FindWindowW")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

const (
	swHide    = 0
	swRestore = 9

	swpNoSize = 0x0001
	swpNoMove = 0x0002
)

var (
	hwndTopMost   = ^uintptr(0) // (HWND)-1
	hwndNoTopMost = ^uintptr(1) // (HWND)-2
)

// EnumWindows needs a callback created once per process; NewCallback slots
// are never freed.
var (
	enumMu       sync.Mutex
	enumFound    []uintptr
	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumFound = append(enumFound, hwnd)
		return 1
	})
)

// WindowsBackend drives top-level windows through user32.
type WindowsBackend struct {
	logger *slog.Logger
}

var _ Backend = (*WindowsBackend)(nil)

func newPlatformBackend(logger *slog.Logger) (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	return &WindowsBackend{logger: logger}, nil
}

func (b *WindowsBackend) FindByNative(native uint64) (Handle, bool) {
	if !isWindow(uintptr(native)) {
		return 0, false
	}
	return Handle(native), true
}

func (b *WindowsBackend) FindByTitle(title string) (Handle, bool, error) {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, false, err
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
	if hwnd == 0 {
		return 0, false, nil
	}
	return Handle(hwnd), true, nil
}

// FindByPID returns the first visible top-level window owned by pid.
func (b *WindowsBackend) FindByPID(pid int) (Handle, bool, error) {
	hwnds, err := enumTopLevel()
	if err != nil {
		return 0, false, err
	}
	for _, hwnd := range hwnds {
		if !isWindowVisible(hwnd) {
			continue
		}
		if windowPID(hwnd) == uint32(pid) {
			return Handle(hwnd), true, nil
		}
	}
	return 0, false, nil
}

func (b *WindowsBackend) Hide(h Handle) error {
	hwnd := uintptr(h)
	if !isWindow(hwnd) {
		return ErrStaleHandle
	}
	// ShowWindow returns the previous visibility, not a status.
	procShowWindow.Call(hwnd, swHide)
	return nil
}

// Show restores the window and brings it to the foreground. Restoring a
// hidden window does not activate it, and SetForegroundWindow is refused
// when another process owns the foreground, so a TOPMOST/NOTOPMOST toggle is
// used to at least raise it.
func (b *WindowsBackend) Show(h Handle) error {
	hwnd := uintptr(h)
	if !isWindow(hwnd) {
		return ErrStaleHandle
	}
	procShowWindow.Call(hwnd, swRestore)

	if ok, _, err := procSetForegroundWindow.Call(hwnd); ok == 0 {
		b.logger.Warn("SetForegroundWindow failed, raising via topmost toggle", "error", callErr(err, "SetForegroundWindow"))
		if err := setWindowPos(hwnd, hwndTopMost); err != nil {
			b.logger.Warn("alternative window activation failed", "error", err)
			return nil
		}
		if err := setWindowPos(hwnd, hwndNoTopMost); err != nil {
			b.logger.Warn("alternative window activation failed", "error", err)
		}
	}
	return nil
}

func (b *WindowsBackend) Exists(h Handle) bool {
	return isWindow(uintptr(h))
}

// List returns visible top-level windows that have a title.
func (b *WindowsBackend) List() ([]Info, error) {
	hwnds, err := enumTopLevel()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(hwnds))
	for _, hwnd := range hwnds {
		if !isWindowVisible(hwnd) {
			continue
		}
		title := windowText(hwnd)
		if title == "" {
			continue
		}
		infos = append(infos, Info{
			ID:    uint64(hwnd),
			PID:   int(windowPID(hwnd)),
			Title: title,
		})
	}
	return infos, nil
}

func (b *WindowsBackend) Close() error { return nil }

func enumTopLevel() ([]uintptr, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumFound = enumFound[:0]
	ret, _, err := procEnumWindows.Call(enumCallback, 0)
	if ret == 0 {
		return nil, callErr(err, "EnumWindows")
	}
	out := make([]uintptr, len(enumFound))
	copy(out, enumFound)
	return out, nil
}

func isWindow(hwnd uintptr) bool {
	if hwnd == 0 {
		return false
	}
	ret, _, _ := procIsWindow.Call(hwnd)
	return ret != 0
}

func isWindowVisible(hwnd uintptr) bool {
	ret, _, _ := procIsWindowVisible.Call(hwnd)
	return ret != 0
}

func windowPID(hwnd uintptr) uint32 {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return pid
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func setWindowPos(hwnd, insertAfter uintptr) error {
	ret, _, err := procSetWindowPos.Call(hwnd, insertAfter, 0, 0, 0, 0, swpNoMove|swpNoSize)
	if ret == 0 {
		return callErr(err, "SetWindowPos")
	}
	return nil
}

func callErr(err error, name string) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return err
}
