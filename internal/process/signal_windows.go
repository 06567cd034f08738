//go:build windows

package process

import (
	"errors"
	"os"
	"syscall"
)

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")
)

const (
	PROCESS_TERMINATE                 = 0x0001
	PROCESS_QUERY_LIMITED_INFORMATION = 0x1000

	ctrlBreakEvent = 1
	stillActive    = 259

	errInvalidParameter = syscall.Errno(87)
)

// sendSignal has no signals to work with on Windows. The graceful phase sends
// CTRL_BREAK to the core's process group; a service without a console cannot
// deliver it, so that failure is swallowed and the poll/kill phases decide.
// The forced phase calls TerminateProcess.
func sendSignal(pid int, force bool) error {
	if !force {
		_, _, _ = procGenerateConsoleCtrlEvent.Call(uintptr(ctrlBreakEvent), uintptr(pid))
		return nil
	}
	h, err := syscall.OpenProcess(PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer func() { _ = syscall.CloseHandle(h) }()
	return syscall.TerminateProcess(h, 1)
}

// Alive reports whether pid is a running process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := syscall.OpenProcess(PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer func() { _ = syscall.CloseHandle(h) }()
	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

func isProcessGone(err error) bool {
	return errors.Is(err, errInvalidParameter) || errors.Is(err, os.ErrProcessDone)
}
