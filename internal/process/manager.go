package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Event identifies a lifecycle transition of the child process.
type Event int

const (
	Started Event = iota
	Exited
	Error
	Timeout
)

func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case Exited:
		return "exited"
	case Error:
		return "error"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Info is passed to hooks. ExitCode is only meaningful for Exited; Err only
// for Error.
type Info struct {
	PID      int
	ExitCode int
	Err      error
}

// Hook observes a lifecycle event.
type Hook func(Info)

type hookEntry struct {
	fn Hook
}

// minWarmup is the shortest time RunCommand waits for the child, so a
// command that exits at once is reported as Exited even with no warmup.
const minWarmup = 100 * time.Millisecond

// ErrAlreadyRunning is reported through the Error hook when RunCommand is
// called twice.
var ErrAlreadyRunning = errors.New("a command was already started")

// Manager supervises at most one child process.
type Manager struct {
	logger *slog.Logger

	// Stdout and Stderr of the child; default to the parent's.
	Stdout *os.File
	Stderr *os.File

	hooksMu sync.Mutex
	hooks   map[Event][]*hookEntry

	mu       sync.Mutex
	cmd      *exec.Cmd
	spawned  bool
	exited   bool
	exitCode int
	waitErr  error
	done     chan struct{}
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		hooks:  make(map[Event][]*hookEntry),
		done:   make(chan struct{}),
	}
}

// AddHook registers fn for ev and returns a func that removes it.
func (m *Manager) AddHook(ev Event, fn Hook) (remove func()) {
	entry := &hookEntry{fn: fn}
	m.hooksMu.Lock()
	m.hooks[ev] = append(m.hooks[ev], entry)
	m.hooksMu.Unlock()

	return func() {
		m.hooksMu.Lock()
		defer m.hooksMu.Unlock()
		list := m.hooks[ev]
		for i, e := range list {
			if e == entry {
				m.hooks[ev] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) fire(ev Event, info Info) {
	m.hooksMu.Lock()
	list := append([]*hookEntry(nil), m.hooks[ev]...)
	m.hooksMu.Unlock()

	for _, e := range list {
		m.callHook(ev, e.fn, info)
	}
}

func (m *Manager) callHook(ev Event, fn Hook, info Info) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in process hook", "event", ev.String(), "panic", r)
		}
	}()
	fn(info)
}

// RunCommand spawns argv and waits up to warmup, never less than
// minWarmup. It returns true when the
// child is still running afterwards (Started fired, Exited/Error follow when
// it ends) and false when it failed to spawn (Error fired) or already exited
// (Exited fired).
func (m *Manager) RunCommand(argv []string, warmup time.Duration) bool {
	if len(argv) == 0 {
		m.fire(Error, Info{Err: errors.New("empty command")})
		return false
	}

	m.mu.Lock()
	if m.spawned {
		m.mu.Unlock()
		m.fire(Error, Info{Err: ErrAlreadyRunning})
		return false
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	configureCommand(cmd)
	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to start command", "command", argv[0], "error", err)
		m.fire(Error, Info{Err: fmt.Errorf("failed to start %q: %w", argv[0], err)})
		return false
	}
	m.cmd = cmd
	m.spawned = true
	pid := cmd.Process.Pid
	m.mu.Unlock()

	m.logger.Info("command started", "command", argv[0], "pid", pid)
	go m.reap(cmd)

	if warmup < minWarmup {
		warmup = minWarmup
	}
	timer := time.NewTimer(warmup)
	select {
	case <-m.done:
		timer.Stop()
	case <-timer.C:
	}

	select {
	case <-m.done:
		code, _ := m.ExitCode()
		m.logger.Info("command exited during warmup", "pid", pid, "exit_code", code)
		m.fire(Exited, Info{PID: pid, ExitCode: code})
		return false
	default:
	}

	m.fire(Started, Info{PID: pid})
	go m.monitor(pid)
	return true
}

// reap is the only caller of cmd.Wait.
func (m *Manager) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	m.mu.Lock()
	m.exited = true
	m.exitCode = -1
	if cmd.ProcessState != nil {
		m.exitCode = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		m.waitErr = err
	}
	m.mu.Unlock()

	close(m.done)
}

func (m *Manager) monitor(pid int) {
	<-m.done
	m.mu.Lock()
	code, waitErr := m.exitCode, m.waitErr
	m.mu.Unlock()

	if waitErr != nil {
		m.logger.Warn("command wait failed", "pid", pid, "error", waitErr)
		m.fire(Error, Info{PID: pid, Err: waitErr})
		return
	}
	m.logger.Info("command exited", "pid", pid, "exit_code", code)
	m.fire(Exited, Info{PID: pid, ExitCode: code})
}

// Terminate asks the child to exit and waits up to timeout before killing
// it, in which case Timeout fires. Returns false when nothing was started.
func (m *Manager) Terminate(timeout time.Duration) bool {
	m.mu.Lock()
	cmd, spawned := m.cmd, m.spawned
	m.mu.Unlock()
	if !spawned {
		return false
	}

	select {
	case <-m.done:
		return true
	default:
	}

	pid := cmd.Process.Pid
	if err := terminate(cmd); err != nil {
		m.logger.Warn("graceful terminate failed", "pid", pid, "error", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.done:
		m.logger.Info("command terminated", "pid", pid)
		return true
	case <-timer.C:
	}

	m.logger.Warn("command did not exit in time, killing", "pid", pid, "timeout", timeout)
	if err := kill(cmd); err != nil {
		m.logger.Error("kill failed", "pid", pid, "error", err)
		m.fire(Error, Info{PID: pid, Err: err})
		return false
	}
	<-m.done
	m.fire(Timeout, Info{PID: pid})
	return true
}

// Wait blocks until the child exits or timeout elapses (timeout <= 0 waits
// forever). ok is false when nothing was started or the timeout hit.
func (m *Manager) Wait(timeout time.Duration) (code int, ok bool) {
	m.mu.Lock()
	spawned := m.spawned
	m.mu.Unlock()
	if !spawned {
		return 0, false
	}

	if timeout <= 0 {
		<-m.done
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-m.done:
		case <-timer.C:
			return 0, false
		}
	}
	return m.ExitCode()
}

// Running reports whether a child was started and has not been reaped.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawned && !m.exited
}

// Started reports whether RunCommand spawned a child.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawned
}

// PID returns the child pid, or 0.
func (m *Manager) PID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd == nil || m.cmd.Process == nil {
		return 0
	}
	return m.cmd.Process.Pid
}

// ExitCode returns the exit code once the child was reaped. A child killed
// by a signal reports -1.
func (m *Manager) ExitCode() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode, m.exited
}

// Done is closed when the child has been reaped. It never closes when no
// command was started.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
