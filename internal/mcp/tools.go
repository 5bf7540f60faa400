package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/min2tray/internal/app"
)

func (s *Server) handleToggle(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, VisibilityOutput, error) {
	if s.ctrl.Status().Stopped {
		return nil, VisibilityOutput{}, app.ErrStopped
	}
	s.ctrl.ToggleVisibility()
	out := visibility(s.ctrl.Status())
	s.logger.Info("toggled window via mcp", "visible", out.Visible)
	return nil, out, nil
}

func (s *Server) handleShow(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, VisibilityOutput, error) {
	if err := s.ctrl.ShowWindow(); err != nil {
		return nil, VisibilityOutput{}, fmt.Errorf("show window: %w", err)
	}
	return nil, visibility(s.ctrl.Status()), nil
}

func (s *Server) handleHide(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, VisibilityOutput, error) {
	if err := s.ctrl.HideWindow(); err != nil {
		return nil, VisibilityOutput{}, fmt.Errorf("hide window: %w", err)
	}
	return nil, visibility(s.ctrl.Status()), nil
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st := s.ctrl.Status()
	hotkeys := st.Hotkeys
	if hotkeys == nil {
		hotkeys = []string{}
	}
	return nil, StatusOutput{
		Window:         st.Window,
		Resolved:       st.Resolved,
		Visible:        st.Visible,
		ProcessPID:     st.ProcessPID,
		ProcessRunning: st.ProcessRunning,
		Hotkeys:        hotkeys,
		Stopped:        st.Stopped,
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	infos, err := s.listWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("list windows: %w", err)
	}
	filter := strings.ToLower(strings.TrimSpace(args.Filter))

	out := ListWindowsOutput{Windows: make([]WindowEntry, 0, len(infos))}
	for _, info := range infos {
		if filter != "" && !strings.Contains(strings.ToLower(info.Title), filter) {
			continue
		}
		out.Windows = append(out.Windows, WindowEntry{
			ID:    info.ID,
			PID:   info.PID,
			Title: info.Title,
			Owner: info.Owner,
		})
	}
	return nil, out, nil
}

// handleQuit reports shutdown errors in the output rather than failing the
// call; the app is stopped either way.
func (s *Server) handleQuit(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, QuitOutput, error) {
	s.logger.Info("quit requested via mcp")
	out := QuitOutput{Stopped: true}
	if err := s.ctrl.Stop(); err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}

func visibility(st app.Status) VisibilityOutput {
	return VisibilityOutput{
		Window:   st.Window,
		Resolved: st.Resolved,
		Visible:  st.Visible,
	}
}
