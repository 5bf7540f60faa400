package hotkeys

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// KeyEvent is a key transition reported by a Listener. Mods are the
// modifiers held at the time of the event.
type KeyEvent struct {
	Mods Modifier
	Key  string
	Down bool
}

// Listener grabs a set of chords system-wide and reports their key events.
// Start must not block; Stop must be safe to call more than once.
type Listener interface {
	Start(chords []Chord, emit func(KeyEvent)) error
	Stop() error
}

type binding struct {
	chord    Chord
	callback func()
	armed    bool
}

// Manager owns the chord dispatch table and the platform listener.
type Manager struct {
	logger      *slog.Logger
	newListener func() (Listener, error)

	mu       sync.Mutex
	bindings map[string]*binding

	// lifecycle guards listener; it is never held by HandleKey so a listener
	// can be stopped while it is delivering an event.
	lifecycle sync.Mutex
	listener  Listener
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithListenerFactory replaces the platform listener.
func WithListenerFactory(f func() (Listener, error)) Option {
	return func(m *Manager) { m.newListener = f }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		bindings: make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.newListener == nil {
		logger := m.logger
		m.newListener = func() (Listener, error) { return newPlatformListener(logger) }
	}
	return m
}

// Register binds callback to chord. An existing binding for the same
// canonical chord is replaced; other chords stay registered. The listener is
// restarted with the full chord set.
func (m *Manager) Register(chord string, callback func()) error {
	if callback == nil {
		return fmt.Errorf("%w: callback is required", ErrRegistration)
	}
	c, err := ParseChord(chord)
	if err != nil {
		return err
	}
	key := c.String()

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	prev, hadPrev := m.bindings[key]
	m.bindings[key] = &binding{chord: c, callback: callback, armed: true}
	chords := m.chordsLocked()
	m.mu.Unlock()

	if err := m.restartLocked(chords); err != nil {
		m.mu.Lock()
		if hadPrev {
			m.bindings[key] = prev
		} else {
			delete(m.bindings, key)
		}
		previous := m.chordsLocked()
		m.mu.Unlock()
		if rerr := m.restartLocked(previous); rerr != nil {
			m.logger.Warn("failed to restore previous hotkeys", "error", rerr)
		}
		return fmt.Errorf("%w: %s: %v", ErrRegistration, key, err)
	}
	m.logger.Info("hotkey registered", "chord", key)
	return nil
}

func (m *Manager) chordsLocked() []Chord {
	chords := make([]Chord, 0, len(m.bindings))
	for _, b := range m.bindings {
		chords = append(chords, b.chord)
	}
	sort.Slice(chords, func(i, j int) bool { return chords[i].String() < chords[j].String() })
	return chords
}

// restartLocked must be called with lifecycle held.
func (m *Manager) restartLocked(chords []Chord) error {
	if m.listener != nil {
		if err := m.listener.Stop(); err != nil {
			m.logger.Warn("failed to stop hotkey listener", "error", err)
		}
		m.listener = nil
	}
	if len(chords) == 0 {
		return nil
	}

	l, err := m.newListener()
	if err != nil {
		return err
	}
	if err := l.Start(chords, m.HandleKey); err != nil {
		return err
	}
	m.listener = l
	return nil
}

// HandleKey is the single entry point for key events. A press of a bound
// chord fires its callback once and disarms it; releasing the chord key
// re-arms it, so auto-repeat never fires twice.
func (m *Manager) HandleKey(ev KeyEvent) {
	m.mu.Lock()
	if !ev.Down {
		for _, b := range m.bindings {
			if b.chord.Key == ev.Key {
				b.armed = true
			}
		}
		m.mu.Unlock()
		return
	}

	b, ok := m.bindings[Chord{Mods: ev.Mods, Key: ev.Key}.String()]
	if !ok || !b.armed {
		m.mu.Unlock()
		return
	}
	b.armed = false
	callback := b.callback
	chord := b.chord.String()
	m.mu.Unlock()

	m.logger.Debug("hotkey pressed", "chord", chord)
	go m.run(chord, callback)
}

func (m *Manager) run(chord string, callback func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in hotkey callback", "chord", chord, "panic", r)
		}
	}()
	callback()
}

// Bindings returns the registered canonical chords, sorted.
func (m *Manager) Bindings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.bindings))
	for key := range m.bindings {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Stop tears the listener down. Bindings are kept so that a later Register
// restarts them. Safe to call when never started.
func (m *Manager) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.listener == nil {
		return nil
	}
	err := m.listener.Stop()
	m.listener = nil
	if err != nil {
		return fmt.Errorf("failed to stop hotkey listener: %w", err)
	}
	return nil
}
