//go:build !windows

package process

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/loykin/clash-service/internal/metrics"
)

var reaperOnce sync.Once

// InitReaper installs a process-wide SIGCHLD handler that reaps every exited
// child, so cores launched with Launcher.Reaped never linger as zombies. It
// must run once before the control plane accepts requests; later calls are
// no-ops. The handler stops when ctx is done. It reports whether reaping is
// active, which callers pass on as Launcher.Reaped.
//
// While the reaper runs, exec.Cmd.Wait in the same process may fail with
// ECHILD, so the daemon must not rely on Wait for other children.
func InitReaper(ctx context.Context, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	reaperOnce.Do(func() {
		ch := make(chan os.Signal, 8)
		signal.Notify(ch, syscall.SIGCHLD)
		go func() {
			defer signal.Stop(ch)
			// children may have exited before Notify took effect
			reapChildren(logger)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ch:
					reapChildren(logger)
				}
			}
		}()
		logger.Debug("child reaper installed")
	})
	return true
}

// reapChildren collects every exited child without blocking. SIGCHLD
// coalesces, so one signal may stand for several exits.
func reapChildren(logger *slog.Logger) int {
	n := 0
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if err != nil || pid <= 0 {
			return n
		}
		n++
		metrics.IncReaped()
		logger.Debug("reaped child", "pid", pid, "exit_status", ws.ExitStatus(), "signaled", ws.Signaled())
	}
}
