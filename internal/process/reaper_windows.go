//go:build windows

package process

import (
	"context"
	"log/slog"
)

// InitReaper is a no-op on Windows: exited processes leave no zombie behind.
// It reports false so Launcher keeps a Wait goroutine to release the handle.
func InitReaper(_ context.Context, _ *slog.Logger) bool {
	return false
}
