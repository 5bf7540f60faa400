//go:build !linux && !windows

package hotkeys

import (
	"fmt"
	"log/slog"
	"runtime"
)

func newPlatformListener(*slog.Logger) (Listener, error) {
	return nil, fmt.Errorf("global hotkeys are not supported on %s", runtime.GOOS)
}
