package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/min2tray/internal/config"
	"github.com/1broseidon/min2tray/internal/hotkeys"
	"github.com/1broseidon/min2tray/internal/process"
	"github.com/1broseidon/min2tray/internal/tray"
	"github.com/1broseidon/min2tray/internal/window"
	"golang.org/x/sync/errgroup"
)

const toggleLabel = "Toggle Window"

// WindowManager is the subset of *window.Manager the App drives.
type WindowManager interface {
	FindWindow() bool
	Hide()
	Show()
	Toggle() error
	IsVisible() bool
	Resolved() bool
	Exists() bool
	Close() error
}

// TrayIcon is the subset of *tray.Icon the App drives.
type TrayIcon interface {
	AddMenuItem(label string, action func(), isDefault bool) error
	Start(iconPath string) error
	Stop()
	Done() <-chan struct{}
}

// HotkeyRegistrar is the subset of *hotkeys.Manager the App drives.
type HotkeyRegistrar interface {
	Register(chord string, callback func()) error
	Stop() error
	Bindings() []string
}

// WindowFactory builds an unresolved WindowManager for id.
type WindowFactory func(id window.Identifier) (WindowManager, error)

// Options configures an App. Exactly one of WindowTitle and Identifier must
// be set; every collaborator defaults to the production implementation.
type Options struct {
	WindowTitle string
	Identifier  window.Identifier

	TrayName  string
	TrayTitle string

	TerminateTimeout  time.Duration
	ReconcileInterval time.Duration

	Tray      TrayIcon
	Hotkeys   HotkeyRegistrar
	Process   *process.Manager
	NewWindow WindowFactory
	Logger    *slog.Logger
}

// App coordinates one window, its tray icon, the hotkey listener and an
// optional child process.
type App struct {
	id                window.Identifier
	tray              TrayIcon
	hotkeys           HotkeyRegistrar
	proc              *process.Manager
	newWindow         WindowFactory
	terminateTimeout  time.Duration
	reconcileInterval time.Duration
	logger            *slog.Logger

	winMu sync.Mutex
	win   WindowManager

	// toggleMu serializes every visibility change and window re-resolution.
	toggleMu     sync.Mutex
	windowClosed bool

	hooksOnce sync.Once

	servicesMu sync.Mutex
	services   []func(context.Context) error

	stopOnce sync.Once
	stopErr  error
	stopped  chan struct{}
}

func New(opts Options) (*App, error) {
	hasTitle := opts.WindowTitle != ""
	hasID := !opts.Identifier.IsZero()
	switch {
	case hasTitle && hasID:
		return nil, fmt.Errorf("%w: set either a window title or an identifier, not both", ErrConfiguration)
	case !hasTitle && !hasID:
		return nil, fmt.Errorf("%w: a window title or identifier is required", ErrConfiguration)
	}

	id := opts.Identifier
	if hasTitle {
		id = window.ByTitle(opts.WindowTitle)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TerminateTimeout <= 0 {
		opts.TerminateTimeout = config.DefaultTerminateTimeout
	}
	if opts.TrayTitle == "" {
		opts.TrayTitle = id.Title()
	}

	a := &App{
		id:                id,
		tray:              opts.Tray,
		hotkeys:           opts.Hotkeys,
		proc:              opts.Process,
		newWindow:         opts.NewWindow,
		terminateTimeout:  opts.TerminateTimeout,
		reconcileInterval: opts.ReconcileInterval,
		logger:            logger,
		stopped:           make(chan struct{}),
	}
	if a.tray == nil {
		a.tray = tray.New(tray.Options{Name: opts.TrayName, Title: opts.TrayTitle, Logger: logger})
	}
	if a.hotkeys == nil {
		a.hotkeys = hotkeys.NewManager(hotkeys.WithLogger(logger))
	}
	if a.proc == nil {
		a.proc = process.NewManager(logger)
	}
	if a.newWindow == nil {
		a.newWindow = func(id window.Identifier) (WindowManager, error) {
			return window.NewManager(id, window.WithLogger(logger))
		}
	}

	if err := a.tray.AddMenuItem(toggleLabel, a.ToggleVisibility, true); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return a, nil
}

// Identifier returns the window identifier the App manages.
func (a *App) Identifier() window.Identifier {
	return a.id
}

// RunCommand launches argv and ties the App lifetime to it: when the child
// exits or fails, the App stops. Returns false when the child is not running
// after warmup.
func (a *App) RunCommand(argv []string, warmup time.Duration) bool {
	a.hooksOnce.Do(func() {
		a.proc.AddHook(process.Started, func(info process.Info) {
			a.logger.Info("process started", "pid", info.PID)
		})
		a.proc.AddHook(process.Exited, func(info process.Info) {
			a.logger.Info("process exited, stopping", "pid", info.PID, "exit_code", info.ExitCode)
			a.Stop()
		})
		a.proc.AddHook(process.Error, func(info process.Info) {
			a.logger.Error("process error, stopping", "pid", info.PID, "error", info.Err)
			a.Stop()
		})
		a.proc.AddHook(process.Timeout, func(info process.Info) {
			a.logger.Warn("process did not exit gracefully and was killed", "pid", info.PID)
		})
	})
	return a.proc.RunCommand(argv, warmup)
}

// SetupWindow builds a window manager and resolves it, replacing the current
// one on success.
func (a *App) SetupWindow() error {
	w, err := a.newWindow(a.id)
	if err != nil {
		return err
	}
	if !w.FindWindow() {
		w.Close()
		return fmt.Errorf("%w: %s", ErrWindowNotFound, a.id)
	}

	a.winMu.Lock()
	old := a.win
	a.win = w
	a.winMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			a.logger.Debug("failed to close previous window manager", "error", err)
		}
	}
	a.logger.Info("window found", "window", a.id.String())
	return nil
}

func (a *App) window() WindowManager {
	a.winMu.Lock()
	defer a.winMu.Unlock()
	return a.win
}

// RegisterHotkey binds chord to ToggleVisibility.
func (a *App) RegisterHotkey(chord string) error {
	return a.hotkeys.Register(chord, a.ToggleVisibility)
}

// ToggleVisibility hides or shows the window. When the toggle fails the
// window is re-resolved once and the toggle retried; a second failure is
// logged and dropped.
func (a *App) ToggleVisibility() {
	a.toggleMu.Lock()
	defer a.toggleMu.Unlock()
	if a.windowClosed {
		return
	}

	err := a.toggleLocked()
	if err == nil {
		return
	}
	a.logger.Debug("toggle failed, re-resolving window", "error", err)
	if err := a.SetupWindow(); err != nil {
		a.logger.Warn("window recovery failed", "error", err)
		return
	}
	if err := a.toggleLocked(); err != nil {
		a.logger.Warn("toggle failed after recovery", "error", err)
	}
}

func (a *App) toggleLocked() error {
	w := a.window()
	if w == nil {
		return window.ErrNotResolved
	}
	return w.Toggle()
}

// ShowWindow shows the window, re-resolving it first when needed.
func (a *App) ShowWindow() error {
	return a.withWindow(func(w WindowManager) { w.Show() })
}

// HideWindow hides the window, re-resolving it first when needed.
func (a *App) HideWindow() error {
	return a.withWindow(func(w WindowManager) { w.Hide() })
}

func (a *App) withWindow(fn func(WindowManager)) error {
	a.toggleMu.Lock()
	defer a.toggleMu.Unlock()
	if a.windowClosed {
		return ErrStopped
	}

	w := a.window()
	if w == nil || !w.Resolved() {
		if err := a.SetupWindow(); err != nil {
			return err
		}
		w = a.window()
	}
	fn(w)
	return nil
}

func (a *App) windowExists() bool {
	w := a.window()
	return w != nil && w.Exists()
}

func (a *App) resolveWindow() error {
	a.toggleMu.Lock()
	defer a.toggleMu.Unlock()
	if a.windowClosed {
		return ErrStopped
	}
	return a.SetupWindow()
}

// AddService runs fn alongside the tray loop once Start is called. The
// context passed to fn is cancelled when the App stops.
func (a *App) AddService(fn func(ctx context.Context) error) {
	a.servicesMu.Lock()
	defer a.servicesMu.Unlock()
	a.services = append(a.services, fn)
}

// Start hides the window when startHidden is set and runs the tray loop on
// the calling goroutine until the tray stops, the child exits or ctx is
// cancelled. It must be called from the main goroutine.
func (a *App) Start(ctx context.Context, iconPath string, startHidden bool) error {
	if startHidden {
		a.toggleMu.Lock()
		if w := a.window(); w != nil {
			w.Hide()
		}
		a.toggleMu.Unlock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			if ctx.Err() != nil {
				a.logger.Info("shutdown requested")
			}
		case <-a.stopped:
		}
		a.Stop()
		return nil
	})

	if a.proc.Started() {
		g.Go(func() error {
			select {
			case <-a.proc.Done():
				a.Stop()
			case <-gctx.Done():
			}
			return nil
		})
	}

	if a.reconcileInterval > 0 {
		r := NewReconciler(ReconcilerConfig{Interval: a.reconcileInterval, Logger: a.logger}, a.windowExists, a.resolveWindow)
		g.Go(func() error {
			r.Run(gctx)
			return nil
		})
	}

	a.servicesMu.Lock()
	services := append([]func(context.Context) error(nil), a.services...)
	a.servicesMu.Unlock()
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			if err := svc(gctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("background service ended", "error", err)
			}
			return nil
		})
	}

	a.logger.Info("running in system tray", "window", a.id.String())
	trayErr := a.tray.Start(iconPath)

	cancel()
	g.Wait()

	return trayErr
}

// Stop stops the tray, the hotkey listener and the child process, in that
// order, attempting every step even when an earlier one fails. A hidden
// window is shown again when no child process owns it. Idempotent; returns
// the joined errors of the first call.
func (a *App) Stop() error {
	a.stopOnce.Do(func() {
		a.logger.Info("stopping")
		var errs []error
		step := func(name string, fn func() error) {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("%s: panic: %v", name, r))
					a.logger.Error("panic during stop", "step", name, "panic", r)
				}
			}()
			if err := fn(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				a.logger.Warn("stop step failed", "step", name, "error", err)
			}
		}

		step("tray", func() error {
			a.tray.Stop()
			return nil
		})
		step("hotkeys", a.hotkeys.Stop)
		step("process", func() error {
			if !a.proc.Started() {
				return nil
			}
			if !a.proc.Terminate(a.terminateTimeout) {
				return fmt.Errorf("failed to terminate pid %d", a.proc.PID())
			}
			return nil
		})
		step("window", func() error {
			a.toggleMu.Lock()
			defer a.toggleMu.Unlock()
			a.windowClosed = true
			w := a.window()
			if w == nil {
				return nil
			}
			if !a.proc.Started() && w.Resolved() && !w.IsVisible() {
				w.Show()
			}
			return w.Close()
		})

		a.stopErr = errors.Join(errs...)
		close(a.stopped)
	})
	return a.stopErr
}

func (a *App) isStopped() bool {
	select {
	case <-a.stopped:
		return true
	default:
		return false
	}
}

// Stopped is closed once Stop has completed.
func (a *App) Stopped() <-chan struct{} {
	return a.stopped
}

// Status is a point-in-time snapshot of the App.
type Status struct {
	Window         string   `json:"window"`
	Resolved       bool     `json:"resolved"`
	Visible        bool     `json:"visible"`
	ProcessPID     int      `json:"process_pid,omitempty"`
	ProcessRunning bool     `json:"process_running"`
	Hotkeys        []string `json:"hotkeys"`
	Stopped        bool     `json:"stopped"`
}

func (a *App) Status() Status {
	st := Status{
		Window:         a.id.String(),
		ProcessPID:     a.proc.PID(),
		ProcessRunning: a.proc.Running(),
		Hotkeys:        a.hotkeys.Bindings(),
	}
	if w := a.window(); w != nil {
		st.Resolved = w.Resolved()
		st.Visible = w.IsVisible()
	}
	st.Stopped = a.isStopped()
	return st
}
