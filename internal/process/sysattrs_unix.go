//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the core in its own process group so terminal
// signals aimed at a foreground daemon do not reach it.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
