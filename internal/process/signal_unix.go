//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// sendSignal delivers SIGTERM, or SIGKILL when force is set, to pid.
func sendSignal(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	return syscall.Kill(pid, sig)
}

// processExists reports whether pid is present in the process table,
// zombies included. EPERM still means the process exists.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func isProcessGone(err error) bool {
	return errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone)
}
