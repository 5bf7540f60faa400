package tray

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

func init() {
	// Native tray loops (Cocoa in particular) must run on the main OS thread.
	// main() runs on the goroutine that executed init, so it stays pinned.
	runtime.LockOSThread()
}

const exitLabel = "Exit"

var (
	ErrIconLoad         = errors.New("failed to load tray icon")
	ErrMenuFrozen       = errors.New("tray menu cannot change after start")
	ErrDuplicateDefault = errors.New("tray menu already has a default item")
	ErrAlreadyStarted   = errors.New("tray icon already started")
)

// Driver is the native tray loop. Run blocks until Quit and calls onReady
// once the icon exists; menu items may only be added from onReady.
type Driver interface {
	Run(onReady, onExit func())
	Quit()
	SetIcon(icon []byte)
	SetTooltip(tooltip string)
	AddMenuItem(label, tooltip string) <-chan struct{}
}

// MenuItem is one entry of the tray menu.
type MenuItem struct {
	Label   string
	Action  func()
	Default bool
}

type Options struct {
	Name   string
	Title  string
	Driver Driver
	Logger *slog.Logger
	// GOOS selects the icon encoding; defaults to runtime.GOOS.
	GOOS string
}

// Icon is a one-shot tray icon: it can be started once and stopped once.
type Icon struct {
	name   string
	title  string
	driver Driver
	logger *slog.Logger
	goos   string

	mu      sync.Mutex
	items   []MenuItem
	started bool
	ready   bool
	stopped bool

	quit     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func New(opts Options) *Icon {
	if opts.Name == "" {
		opts.Name = "Min2Tray"
	}
	if opts.Title == "" {
		opts.Title = "Application"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Driver == nil {
		opts.Driver = SystrayDriver{}
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	return &Icon{
		name:   opts.Name,
		title:  opts.Title,
		driver: opts.Driver,
		logger: opts.Logger.With("tray", opts.Name),
		goos:   opts.GOOS,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// AddMenuItem appends an item. At most one item may be the default; it is
// rendered first.
func (t *Icon) AddMenuItem(label string, action func(), isDefault bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return ErrMenuFrozen
	}
	if isDefault {
		for _, it := range t.items {
			if it.Default {
				return fmt.Errorf("%w: %q", ErrDuplicateDefault, it.Label)
			}
		}
	}
	t.items = append(t.items, MenuItem{Label: label, Action: action, Default: isDefault})
	return nil
}

func renderOrder(items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		if it.Default {
			out = append(out, it)
		}
	}
	for _, it := range items {
		if !it.Default {
			out = append(out, it)
		}
	}
	return out
}

// Start loads the icon, appends an Exit item when none exists and runs the
// native loop until Stop. It returns immediately when Stop already ran.
func (t *Icon) Start(iconPath string) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	if t.stopped {
		t.mu.Unlock()
		return nil
	}

	img, err := LoadImage(iconPath)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	icon, err := EncodeIcon(img, t.goos)
	if err != nil {
		t.mu.Unlock()
		return err
	}

	hasExit := false
	for _, it := range t.items {
		if it.Label == exitLabel {
			hasExit = true
			break
		}
	}
	if !hasExit {
		t.items = append(t.items, MenuItem{Label: exitLabel, Action: t.Stop})
	}
	items := renderOrder(t.items)
	t.started = true
	t.mu.Unlock()

	t.logger.Debug("tray loop starting", "items", len(items))
	t.driver.Run(func() { t.onReady(icon, items) }, func() {})
	t.finish()
	t.logger.Debug("tray loop ended")
	return nil
}

func (t *Icon) onReady(icon []byte, items []MenuItem) {
	t.driver.SetIcon(icon)
	t.driver.SetTooltip(t.title)
	for _, it := range items {
		clicked := t.driver.AddMenuItem(it.Label, "")
		go t.dispatch(it, clicked)
	}

	t.mu.Lock()
	t.ready = true
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		t.driver.Quit()
	}
}

func (t *Icon) dispatch(item MenuItem, clicked <-chan struct{}) {
	for {
		select {
		case <-t.quit:
			return
		case <-clicked:
			t.invoke(item)
		}
	}
}

func (t *Icon) invoke(item MenuItem) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in tray menu action", "item", item.Label, "panic", r)
		}
	}()
	if item.Action != nil {
		item.Action()
	}
}

// Stop ends the tray loop. Idempotent and safe from any goroutine,
// including menu actions.
func (t *Icon) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.quit)
	started, ready := t.started, t.ready
	t.mu.Unlock()

	switch {
	case !started:
		t.finish()
	case ready:
		t.driver.Quit()
	}
}

func (t *Icon) finish() {
	t.doneOnce.Do(func() { close(t.done) })
}

// Done is closed once the tray loop has ended or Stop ran before Start.
func (t *Icon) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the loop is up.
func (t *Icon) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.stopped
}
