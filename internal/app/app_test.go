package app

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/min2tray/internal/process"
	"github.com/1broseidon/min2tray/internal/window"
)

type harness struct {
	app     *App
	tray    *fakeTray
	hotkeys *fakeHotkeys
	windows *windowQueue
	proc    *process.Manager
}

func newHarness(t *testing.T, wins ...*fakeWindow) *harness {
	t.Helper()
	if len(wins) == 0 {
		wins = []*fakeWindow{{found: true}}
	}
	h := &harness{
		tray:    newFakeTray(),
		hotkeys: newFakeHotkeys(),
		windows: &windowQueue{windows: wins},
		proc:    process.NewManager(quietLogger()),
	}
	h.proc.Stdout, h.proc.Stderr = nil, nil
	a, err := New(Options{
		WindowTitle:      "Notepad",
		Tray:             h.tray,
		Hotkeys:          h.hotkeys,
		Process:          h.proc,
		NewWindow:        h.windows.factory,
		TerminateTimeout: time.Second,
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.app = a
	return h
}

func (h *harness) startAsync(ctx context.Context, startHidden bool) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.app.Start(ctx, "", startHidden) }()
	return errCh
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
		return nil
	}
}

func TestNew_RequiresExactlyOneIdentifier(t *testing.T) {
	if _, err := New(Options{Tray: newFakeTray()}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("no identifier: got %v, want ErrConfiguration", err)
	}
	_, err := New(Options{WindowTitle: "a", Identifier: window.ByProcessID(3), Tray: newFakeTray()})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("both set: got %v, want ErrConfiguration", err)
	}
	a, err := New(Options{Identifier: window.ByProcessID(3), Tray: newFakeTray(), Hotkeys: newFakeHotkeys()})
	if err != nil {
		t.Fatalf("identifier only: %v", err)
	}
	if a.Identifier().ProcessID() != 3 {
		t.Fatal("identifier not kept")
	}
}

func TestNew_RegistersDefaultToggleItem(t *testing.T) {
	h := newHarness(t)
	h.tray.mu.Lock()
	defer h.tray.mu.Unlock()
	if len(h.tray.items) != 1 || h.tray.items[0].label != "Toggle Window" || !h.tray.items[0].isDefault {
		t.Fatalf("unexpected tray items: %+v", h.tray.items)
	}
}

func TestEndToEnd_HotkeyAndTrayToggle(t *testing.T) {
	win := &fakeWindow{found: true}
	h := newHarness(t, win)

	if err := h.app.SetupWindow(); err != nil {
		t.Fatalf("SetupWindow: %v", err)
	}
	if err := h.app.RegisterHotkey("ctrl+alt+h"); err != nil {
		t.Fatalf("RegisterHotkey: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := h.startAsync(ctx, false)
	<-h.tray.running

	h.hotkeys.press("ctrl+alt+h")
	if win.IsVisible() {
		t.Fatal("first hotkey press should hide")
	}
	h.hotkeys.press("ctrl+alt+h")
	if !win.IsVisible() {
		t.Fatal("second hotkey press should show")
	}
	h.tray.defaultAction()()
	if win.IsVisible() {
		t.Fatal("tray default action should hide")
	}

	st := h.app.Status()
	if !st.Resolved || st.Visible || len(st.Hotkeys) != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}

	cancel()
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.tray.Stopped() || !h.hotkeys.Stopped() {
		t.Fatal("Stop should stop tray and hotkeys")
	}
	if !win.IsVisible() {
		t.Fatal("hidden window should be restored on exit when no child owns it")
	}
	if !h.app.Status().Stopped {
		t.Fatal("status should report stopped")
	}
}

func TestStart_Hidden(t *testing.T) {
	win := &fakeWindow{found: true}
	h := newHarness(t, win)
	if err := h.app.SetupWindow(); err != nil {
		t.Fatal(err)
	}
	errCh := h.startAsync(context.Background(), true)
	<-h.tray.running
	if win.IsVisible() {
		t.Fatal("window should be hidden when starting minimized")
	}
	h.tray.Stop()
	if err := waitErr(t, errCh); err != nil {
		t.Fatal(err)
	}
	if !h.hotkeys.Stopped() {
		t.Fatal("tray exit should stop the whole app")
	}
}

func TestSetupWindow_NotFound(t *testing.T) {
	win := &fakeWindow{found: false}
	h := newHarness(t, win)
	err := h.app.SetupWindow()
	if !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("got %v, want ErrWindowNotFound", err)
	}
	if !strings.Contains(err.Error(), "Notepad") {
		t.Fatalf("error should name the window: %v", err)
	}
	if !win.closed {
		t.Fatal("unresolved manager should be closed")
	}
}

func TestToggle_RecoversOnce(t *testing.T) {
	broken := &fakeWindow{found: true, toggleErr: window.ErrNotResolved}
	fresh := &fakeWindow{found: true}
	h := newHarness(t, broken, fresh)
	if err := h.app.SetupWindow(); err != nil {
		t.Fatal(err)
	}

	h.app.ToggleVisibility()

	if h.windows.Calls() != 2 {
		t.Fatalf("expected one re-resolution, factory called %d times", h.windows.Calls())
	}
	if fresh.IsVisible() {
		t.Fatal("retry should toggle the fresh window")
	}
	if !broken.closed {
		t.Fatal("replaced window manager should be closed")
	}
}

func TestToggle_SecondFailureDropped(t *testing.T) {
	broken := &fakeWindow{found: true, toggleErr: window.ErrNotResolved}
	h := newHarness(t, broken)
	if err := h.app.SetupWindow(); err != nil {
		t.Fatal(err)
	}
	h.app.ToggleVisibility()
	if h.windows.Calls() != 2 {
		t.Fatalf("expected exactly one recovery attempt, got %d factory calls", h.windows.Calls()-1)
	}
}

func TestToggle_WithoutSetupResolvesLazily(t *testing.T) {
	win := &fakeWindow{found: true}
	h := newHarness(t, win)
	h.app.ToggleVisibility()
	if win.IsVisible() {
		t.Fatal("toggle should resolve the window and hide it")
	}
}

func TestToggle_ConcurrentIsSerialized(t *testing.T) {
	b := &countingBackend{}
	var mu sync.Mutex
	h := newHarness(t)
	h.app.newWindow = func(id window.Identifier) (WindowManager, error) {
		mu.Lock()
		defer mu.Unlock()
		return window.NewManager(id, window.WithBackend(b), window.WithPlatform("linux"), window.WithLogger(quietLogger()))
	}
	if err := h.app.SetupWindow(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.app.ToggleVisibility()
		}()
	}
	wg.Wait()

	hides, shows := b.counts()
	if hides != 5 || shows != 5 {
		t.Fatalf("hides=%d shows=%d, want 5/5", hides, shows)
	}
	if !h.app.Status().Visible {
		t.Fatal("even number of toggles should leave the window visible")
	}
}

func TestRunCommand_ImmediateExitStopsApp(t *testing.T) {
	requireUnix(t)
	h := newHarness(t)

	var mu sync.Mutex
	var exitCodes []int
	h.proc.AddHook(process.Exited, func(info process.Info) {
		mu.Lock()
		exitCodes = append(exitCodes, info.ExitCode)
		mu.Unlock()
	})

	if h.app.RunCommand([]string{"sh", "-c", "exit 0"}, 500*time.Millisecond) {
		t.Fatal("expected RunCommand to report the child already exited")
	}

	mu.Lock()
	if len(exitCodes) != 1 || exitCodes[0] != 0 {
		t.Fatalf("exit codes = %v, want [0]", exitCodes)
	}
	mu.Unlock()

	select {
	case <-h.app.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("app should stop when the child exits")
	}
	if !h.tray.Stopped() || !h.hotkeys.Stopped() {
		t.Fatal("stop cascade incomplete")
	}

	if err := waitErr(t, h.startAsync(context.Background(), false)); err != nil {
		t.Fatalf("Start after stop: %v", err)
	}
}

func TestRunCommand_ChildExitEndsStart(t *testing.T) {
	requireUnix(t)
	h := newHarness(t)
	if err := h.app.SetupWindow(); err != nil {
		t.Fatal(err)
	}
	if !h.app.RunCommand([]string{"sh", "-c", "sleep 0.5"}, 50*time.Millisecond) {
		t.Fatal("expected child to be running")
	}
	if err := waitErr(t, h.startAsync(context.Background(), false)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.proc.Running() {
		t.Fatal("child should have exited")
	}
}

func TestStop_TerminatesChildOnInterrupt(t *testing.T) {
	requireUnix(t)
	h := newHarness(t)
	if !h.app.RunCommand([]string{"sh", "-c", "sleep 10"}, 50*time.Millisecond) {
		t.Fatal("expected child to be running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := h.startAsync(ctx, false)
	<-h.tray.running
	cancel()
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.proc.Running() {
		t.Fatal("child should be terminated on interrupt")
	}
}

func TestStop_RunsAllStepsDespiteFailures(t *testing.T) {
	requireUnix(t)
	h := newHarness(t)
	h.tray.panicStop = true
	h.hotkeys.stopErr = errors.New("ungrab failed")

	if !h.app.RunCommand([]string{"sh", "-c", "sleep 10"}, 50*time.Millisecond) {
		t.Fatal("expected child to be running")
	}

	err := h.app.Stop()
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(err.Error(), "tray") || !strings.Contains(err.Error(), "ungrab failed") {
		t.Fatalf("error should mention both failures: %v", err)
	}
	if h.proc.Running() {
		t.Fatal("child must be terminated even though earlier steps failed")
	}
	if again := h.app.Stop(); again != err {
		t.Fatalf("second Stop should return the first result, got %v", again)
	}
}

func TestShowHideWindow(t *testing.T) {
	win := &fakeWindow{found: true}
	h := newHarness(t, win)
	if err := h.app.HideWindow(); err != nil {
		t.Fatal(err)
	}
	if win.IsVisible() {
		t.Fatal("HideWindow should hide")
	}
	if err := h.app.ShowWindow(); err != nil {
		t.Fatal(err)
	}
	if !win.IsVisible() {
		t.Fatal("ShowWindow should show")
	}

	h.app.Stop()
	if err := h.app.HideWindow(); !errors.Is(err, ErrStopped) {
		t.Fatalf("HideWindow after Stop: got %v, want ErrStopped", err)
	}
}

func TestService_CancelledOnStop(t *testing.T) {
	h := newHarness(t)
	ran := make(chan struct{})
	h.app.AddService(func(ctx context.Context) error {
		close(ran)
		<-ctx.Done()
		return ctx.Err()
	})
	errCh := h.startAsync(context.Background(), false)
	<-ran
	h.app.Stop()
	if err := waitErr(t, errCh); err != nil {
		t.Fatal(err)
	}
}

type countingBackend struct {
	mu    sync.Mutex
	hides int
	shows int
}

func (b *countingBackend) FindByNative(uint64) (window.Handle, bool) { return 0, false }
func (b *countingBackend) FindByTitle(title string) (window.Handle, bool, error) {
	return 1, title == "Notepad", nil
}
func (b *countingBackend) FindByPID(int) (window.Handle, bool, error) { return 0, false, nil }
func (b *countingBackend) Hide(window.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hides++
	return nil
}
func (b *countingBackend) Show(window.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shows++
	return nil
}
func (b *countingBackend) Exists(window.Handle) bool { return true }
func (b *countingBackend) List() ([]window.Info, error) { return nil, nil }
func (b *countingBackend) Close() error { return nil }
func (b *countingBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hides, b.shows
}
