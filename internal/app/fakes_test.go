package app

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/1broseidon/min2tray/internal/window"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWindow struct {
	mu        sync.Mutex
	found     bool
	resolved  bool
	visible   bool
	exists    bool
	toggleErr error
	hides     int
	shows     int
	closed    bool
}

func (w *fakeWindow) FindWindow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.found {
		w.resolved = true
		w.visible = true
		w.exists = true
	}
	return w.found
}

func (w *fakeWindow) Hide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved && w.visible {
		w.visible = false
		w.hides++
	}
}

func (w *fakeWindow) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolved && !w.visible {
		w.visible = true
		w.shows++
	}
}

func (w *fakeWindow) Toggle() error {
	w.mu.Lock()
	err := w.toggleErr
	visible := w.visible
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if visible {
		w.Hide()
	} else {
		w.Show()
	}
	return nil
}

func (w *fakeWindow) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *fakeWindow) Resolved() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolved
}

func (w *fakeWindow) Exists() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exists
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// windowQueue hands out prepared fake windows in order, repeating the last.
type windowQueue struct {
	mu      sync.Mutex
	windows []*fakeWindow
	calls   int
}

func (q *windowQueue) factory(window.Identifier) (WindowManager, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.calls
	if i >= len(q.windows) {
		i = len(q.windows) - 1
	}
	q.calls++
	return q.windows[i], nil
}

func (q *windowQueue) Calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

type fakeMenuItem struct {
	label     string
	action    func()
	isDefault bool
}

type fakeTray struct {
	mu        sync.Mutex
	items     []fakeMenuItem
	started   bool
	stopped   bool
	panicStop bool
	iconPath  string
	startErr  error
	running   chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func newFakeTray() *fakeTray {
	return &fakeTray{running: make(chan struct{}), done: make(chan struct{})}
}

func (t *fakeTray) AddMenuItem(label string, action func(), isDefault bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if isDefault && it.isDefault {
			return errors.New("duplicate default")
		}
	}
	t.items = append(t.items, fakeMenuItem{label, action, isDefault})
	return nil
}

func (t *fakeTray) Start(iconPath string) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.iconPath = iconPath
	err := t.startErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	close(t.running)
	<-t.done
	return nil
}

func (t *fakeTray) Stop() {
	t.mu.Lock()
	t.stopped = true
	panicStop := t.panicStop
	t.mu.Unlock()
	t.stopOnce.Do(func() { close(t.done) })
	if panicStop {
		panic("tray exploded")
	}
}

func (t *fakeTray) Done() <-chan struct{} { return t.done }

func (t *fakeTray) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTray) defaultAction() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, it := range t.items {
		if it.isDefault {
			return it.action
		}
	}
	return nil
}

type fakeHotkeys struct {
	mu        sync.Mutex
	callbacks map[string]func()
	stopped   bool
	stopErr   error
}

func newFakeHotkeys() *fakeHotkeys {
	return &fakeHotkeys{callbacks: make(map[string]func())}
}

func (h *fakeHotkeys) Register(chord string, cb func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks[chord] = cb
	return nil
}

func (h *fakeHotkeys) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	return h.stopErr
}

func (h *fakeHotkeys) Bindings() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for k := range h.callbacks {
		out = append(out, k)
	}
	return out
}

func (h *fakeHotkeys) press(chord string) {
	h.mu.Lock()
	cb := h.callbacks[chord]
	h.mu.Unlock()
	cb()
}

func (h *fakeHotkeys) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
