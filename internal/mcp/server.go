package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/min2tray/internal/app"
	"github.com/1broseidon/min2tray/internal/window"
)

const (
	ServerName    = "min2tray"
	ServerVersion = "0.1.0"
)

// Controller is the part of the application the MCP tools drive.
type Controller interface {
	ToggleVisibility()
	ShowWindow() error
	HideWindow() error
	Status() app.Status
	Stop() error
}

// Server exposes window control over MCP on stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	ctrl      Controller
	logger    *slog.Logger

	// listWindows is swapped out in tests.
	listWindows func() ([]window.Info, error)
}

// NewServer creates the MCP server and registers its tools.
func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:        ctrl,
		logger:      logger.With("component", "mcp"),
		listWindows: window.List,
	}

	s.mcpServer = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_window",
		Description: "Toggle the managed window between hidden (tray only) and shown. Returns the visibility after the toggle.",
	}, s.handleToggle)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_window",
		Description: "Show the managed window and bring it to the foreground. Does nothing when it is already visible.",
	}, s.handleShow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_window",
		Description: "Hide the managed window so it is only reachable from the tray icon. Does nothing when it is already hidden.",
	}, s.handleHide)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "window_status",
		Description: "Report the managed window identifier, whether it is resolved and visible, the launched process and the registered hotkeys.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level windows on this desktop with their native id, owning pid and title. Optionally filter by a case-insensitive title substring.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "quit",
		Description: "Shut min2tray down: remove the tray icon, unregister hotkeys, terminate the launched process and release the window.",
	}, s.handleQuit)
}
