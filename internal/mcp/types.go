package mcp

// EmptyInput is the input for tools that take no arguments.
type EmptyInput struct{}

// VisibilityOutput is returned by the toggle, show and hide tools.
type VisibilityOutput struct {
	Window   string `json:"window"`
	Resolved bool   `json:"resolved"`
	Visible  bool   `json:"visible"`
}

// StatusOutput is the output for the window_status tool.
type StatusOutput struct {
	Window         string   `json:"window"`
	Resolved       bool     `json:"resolved"`
	Visible        bool     `json:"visible"`
	ProcessPID     int      `json:"process_pid,omitempty"`
	ProcessRunning bool     `json:"process_running"`
	Hotkeys        []string `json:"hotkeys"`
	Stopped        bool     `json:"stopped"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"Case-insensitive substring to match against window titles"`
}

// WindowEntry describes one top-level window.
type WindowEntry struct {
	ID    uint64 `json:"id"`
	PID   int    `json:"pid,omitempty"`
	Title string `json:"title"`
	Owner string `json:"owner,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowEntry `json:"windows"`
}

// QuitOutput is the output for the quit tool.
type QuitOutput struct {
	Stopped bool   `json:"stopped"`
	Error   string `json:"error,omitempty"`
}
