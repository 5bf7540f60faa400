//go:build !linux && !windows && !darwin

package window

import (
	"fmt"
	"log/slog"
	"runtime"
)

func newPlatformBackend(_ *slog.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
}
