package x11

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ClientWindows returns the top-level windows managed by the window manager.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// WindowPID returns _NET_WM_PID when the client sets it.
func (c *Connection) WindowPID(windowID xproto.Window) (int, bool) {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil || pid == 0 {
		return 0, false
	}
	return int(pid), true
}

// WindowExists reports whether the server still knows about windowID.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	return len(types) == 0
}

// FindWindowByTitle searches the EWMH client list for a window whose title
// equals title exactly and returns the first match. Withdrawn windows drop
// out of _NET_CLIENT_LIST, so the window tree under the root is scanned as a
// fallback; that is how a window hidden by UnmapWindow is found again.
func (c *Connection) FindWindowByTitle(title string) (xproto.Window, bool, error) {
	clients, listErr := c.ClientWindows()
	if win, ok := matchTitle(clients, title, c.WindowTitle); ok {
		return win, true, nil
	}

	tree, err := treeWindows(c.Root, c.children)
	if err != nil {
		if listErr != nil {
			return 0, false, errors.Join(listErr, err)
		}
		return 0, false, err
	}
	win, ok := matchTitle(tree, title, c.WindowTitle)
	return win, ok, nil
}

func (c *Connection) children(win xproto.Window) ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	return reply.Children, nil
}

// treeWindows lists the children of root followed by their children, which
// covers clients that a reparenting window manager left inside a frame.
func treeWindows(root xproto.Window, children func(xproto.Window) ([]xproto.Window, error)) ([]xproto.Window, error) {
	top, err := children(root)
	if err != nil {
		return nil, err
	}
	out := append([]xproto.Window(nil), top...)
	for _, win := range top {
		// Windows may vanish between the two queries.
		sub, err := children(win)
		if err != nil {
			continue
		}
		out = append(out, sub...)
	}
	return out, nil
}

func matchTitle(wins []xproto.Window, title string, titleOf func(xproto.Window) string) (xproto.Window, bool) {
	if title == "" {
		return 0, false
	}
	for _, win := range wins {
		if titleOf(win) == title {
			return win, true
		}
	}
	return 0, false
}

// FindWindowByPID returns the first client window owned by pid.
func (c *Connection) FindWindowByPID(pid int) (xproto.Window, bool, error) {
	clients, err := c.ClientWindows()
	if err != nil {
		return 0, false, err
	}
	for _, win := range clients {
		if p, ok := c.WindowPID(win); ok && p == pid {
			return win, true, nil
		}
	}
	return 0, false, nil
}

// UnmapWindow withdraws a window from the screen and the taskbar.
func (c *Connection) UnmapWindow(windowID xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// MapWindow puts a previously unmapped window back on screen.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// The client message is built by hand because the xgbutil ewmh request
// helpers panic on this library version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
