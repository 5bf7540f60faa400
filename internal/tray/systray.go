package tray

import "github.com/getlantern/systray"

// SystrayDriver runs the process-wide getlantern/systray loop.
type SystrayDriver struct{}

var _ Driver = SystrayDriver{}

func (SystrayDriver) Run(onReady, onExit func()) { systray.Run(onReady, onExit) }
func (SystrayDriver) Quit() { systray.Quit() }
func (SystrayDriver) SetIcon(icon []byte) { systray.SetIcon(icon) }
func (SystrayDriver) SetTooltip(tooltip string) { systray.SetTooltip(tooltip) }

func (SystrayDriver) AddMenuItem(label, tooltip string) <-chan struct{} {
	return systray.AddMenuItem(label, tooltip).ClickedCh
}
