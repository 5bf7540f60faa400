package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/min2tray/internal/app"
	"github.com/1broseidon/min2tray/internal/window"
)

type fakeController struct {
	visible  bool
	stopped  bool
	toggles  int
	showErr  error
	stopErr  error
	stopCall int
}

func (f *fakeController) ToggleVisibility() {
	f.toggles++
	f.visible = !f.visible
}

func (f *fakeController) ShowWindow() error {
	if f.showErr != nil {
		return f.showErr
	}
	f.visible = true
	return nil
}

func (f *fakeController) HideWindow() error {
	f.visible = false
	return nil
}

func (f *fakeController) Status() app.Status {
	return app.Status{
		Window:   `title "Notepad"`,
		Resolved: true,
		Visible:  f.visible,
		Stopped:  f.stopped,
	}
}

func (f *fakeController) Stop() error {
	f.stopCall++
	f.stopped = true
	return f.stopErr
}

func newTestServer(ctrl *fakeController) *Server {
	return NewServer(ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleToggle(t *testing.T) {
	ctrl := &fakeController{visible: true}
	s := newTestServer(ctrl)

	_, out, err := s.handleToggle(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.Visible {
		t.Errorf("Visible = true after toggle, want false")
	}
	_, out, _ = s.handleToggle(context.Background(), nil, EmptyInput{})
	if !out.Visible || ctrl.toggles != 2 {
		t.Errorf("Visible = %v toggles = %d, want true 2", out.Visible, ctrl.toggles)
	}
}

func TestHandleToggleAfterStop(t *testing.T) {
	ctrl := &fakeController{stopped: true}
	s := newTestServer(ctrl)

	_, _, err := s.handleToggle(context.Background(), nil, EmptyInput{})
	if !errors.Is(err, app.ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
	if ctrl.toggles != 0 {
		t.Errorf("toggles = %d, want 0", ctrl.toggles)
	}
}

func TestHandleShowHide(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	_, out, err := s.handleShow(context.Background(), nil, EmptyInput{})
	if err != nil || !out.Visible {
		t.Fatalf("show: out=%+v err=%v", out, err)
	}
	_, out, err = s.handleHide(context.Background(), nil, EmptyInput{})
	if err != nil || out.Visible {
		t.Fatalf("hide: out=%+v err=%v", out, err)
	}

	ctrl.showErr = app.ErrWindowNotFound
	if _, _, err := s.handleShow(context.Background(), nil, EmptyInput{}); !errors.Is(err, app.ErrWindowNotFound) {
		t.Errorf("show err = %v, want ErrWindowNotFound", err)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(&fakeController{visible: true})

	_, out, err := s.handleStatus(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if out.Window != `title "Notepad"` || !out.Resolved || !out.Visible {
		t.Errorf("status = %+v", out)
	}
	if out.Hotkeys == nil {
		t.Errorf("Hotkeys is nil, want empty slice")
	}
}

func TestHandleListWindows(t *testing.T) {
	s := newTestServer(&fakeController{})
	s.listWindows = func() ([]window.Info, error) {
		return []window.Info{
			{ID: 1, PID: 10, Title: "Untitled - Notepad"},
			{ID: 2, PID: 20, Title: "Terminal"},
		}, nil
	}

	tests := []struct {
		filter string
		want   []uint64
	}{
		{"", []uint64{1, 2}},
		{"notepad", []uint64{1}},
		{"  TERM ", []uint64{2}},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{Filter: tt.filter})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(out.Windows) != len(tt.want) {
				t.Fatalf("got %d windows, want %d", len(out.Windows), len(tt.want))
			}
			for i, id := range tt.want {
				if out.Windows[i].ID != id {
					t.Errorf("window[%d].ID = %d, want %d", i, out.Windows[i].ID, id)
				}
			}
		})
	}

	s.listWindows = func() ([]window.Info, error) { return nil, window.ErrUnsupportedPlatform }
	if _, _, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{}); err == nil {
		t.Error("expected error from failing backend")
	}
}

func TestHandleQuit(t *testing.T) {
	ctrl := &fakeController{stopErr: errors.New("tray gone")}
	s := newTestServer(ctrl)

	_, out, err := s.handleQuit(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if !out.Stopped || out.Error != "tray gone" || ctrl.stopCall != 1 {
		t.Errorf("quit out=%+v stopCalls=%d", out, ctrl.stopCall)
	}
}
