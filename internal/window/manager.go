package window

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// Manager resolves an Identifier to a native window and toggles its
// visibility. All visibility changes on one Manager are serialized.
type Manager struct {
	id      PlatformIdentifier
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	handle   Handle
	resolved bool
	visible  bool
}

type managerOptions struct {
	goos    string
	backend Backend
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*managerOptions)

// WithBackend replaces the platform backend (tests, embedding).
func WithBackend(b Backend) Option {
	return func(o *managerOptions) { o.backend = b }
}

// WithLogger sets the logger used for swallowed backend errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) { o.logger = l }
}

// WithPlatform overrides runtime.GOOS when narrowing the identifier.
func WithPlatform(goos string) Option {
	return func(o *managerOptions) { o.goos = goos }
}

// NewManager picks the backend for the running platform and returns an
// unresolved Manager. Call FindWindow before Hide/Show/Toggle.
func NewManager(id Identifier, opts ...Option) (*Manager, error) {
	o := managerOptions{goos: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	pi, err := id.ToPlatform(o.goos)
	if err != nil {
		return nil, err
	}

	if o.backend == nil {
		b, err := newPlatformBackend(o.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s window backend: %w", o.goos, err)
		}
		o.backend = b
	}

	return &Manager{
		id:      pi,
		backend: o.backend,
		logger:  o.logger.With("window", id.String()),
	}, nil
}

// Identifier returns the platform-narrowed identifier.
func (m *Manager) Identifier() PlatformIdentifier {
	return m.id
}

// FindWindow resolves the identifier: native handle first, then title, then
// owning process id. It never errors for "not found".
func (m *Manager) FindWindow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.lookup()
	if !ok {
		return false
	}
	if !m.resolved || h != m.handle {
		m.visible = true
	}
	m.handle = h
	m.resolved = true
	m.logger.Debug("window resolved", "handle", fmt.Sprintf("%#x", uint64(h)))
	return true
}

func (m *Manager) lookup() (Handle, bool) {
	if m.id.Native != 0 {
		if h, ok := m.backend.FindByNative(m.id.Native); ok {
			return h, true
		}
	}
	if m.id.Title != "" {
		h, ok, err := m.backend.FindByTitle(m.id.Title)
		if err != nil {
			m.logger.Debug("title lookup failed", "error", err)
		} else if ok {
			return h, true
		}
	}
	if m.id.ProcessID != 0 {
		h, ok, err := m.backend.FindByPID(m.id.ProcessID)
		if err != nil {
			m.logger.Debug("pid lookup failed", "error", err)
		} else if ok {
			return h, true
		}
	}
	return 0, false
}

// Hide hides the window. No-op when already hidden or unresolved.
func (m *Manager) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideLocked()
}

// Show shows and activates the window. No-op when visible or unresolved.
func (m *Manager) Show() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showLocked()
}

// Toggle hides a visible window and shows a hidden one. The read of the
// visibility flag and the backend call happen under one lock. Backend errors
// are logged; only ErrStaleHandle is returned so callers can re-resolve.
func (m *Manager) Toggle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.resolved {
		return ErrNotResolved
	}
	var err error
	if m.visible {
		err = m.hideLocked()
	} else {
		err = m.showLocked()
	}
	if errors.Is(err, ErrStaleHandle) {
		return err
	}
	return nil
}

func (m *Manager) hideLocked() error {
	if !m.resolved || !m.visible {
		return nil
	}
	if err := m.backend.Hide(m.handle); err != nil {
		m.logger.Warn("hide failed", "error", err)
		return err
	}
	m.visible = false
	return nil
}

func (m *Manager) showLocked() error {
	if !m.resolved || m.visible {
		return nil
	}
	if err := m.backend.Show(m.handle); err != nil {
		m.logger.Warn("show failed", "error", err)
		return err
	}
	m.visible = true
	return nil
}

// IsVisible returns the cached visibility.
func (m *Manager) IsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// Resolved reports whether FindWindow has succeeded.
func (m *Manager) Resolved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

// Handle returns the resolved native handle.
func (m *Manager) Handle() (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle, m.resolved
}

// Exists re-validates the cached handle against the backend.
func (m *Manager) Exists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.resolved {
		return false
	}
	return m.backend.Exists(m.handle)
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
