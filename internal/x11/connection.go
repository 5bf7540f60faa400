package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to the display named by $DISPLAY.
func NewConnection() (*Connection, error) {
	return NewConnectionDisplay("")
}

// NewConnectionDisplay connects to an explicit display (":1"). An empty name
// falls back to $DISPLAY.
func NewConnectionDisplay(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit asks a running EventLoop to return.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// NewWakeWindow creates an unmapped InputOnly window owned by this
// connection. Events sent to it with an empty mask are delivered back to
// this connection, which is what Wake relies on.
func (c *Connection) NewWakeWindow() (xproto.Window, error) {
	conn := c.XUtil.Conn()
	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(conn, 0, wid, c.Root,
		0, 0, 1, 1, 0, xproto.WindowClassInputOnly, 0, 0, nil).Check()
	if err != nil {
		return 0, err
	}
	return wid, nil
}

// Wake unblocks an EventLoop waiting for the next event. Closing the
// connection instead makes xevent abort the process.
func (c *Connection) Wake(win xproto.Window) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   xproto.AtomNone,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, win, 0, string(ev.Bytes())).Check()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
