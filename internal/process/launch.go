package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Launcher starts core executables with stdout redirected to a log sink.
type Launcher struct {
	// Reaped is set when a process-wide reaper (see InitReaper) collects exited
	// children. Otherwise every launched child gets its own waiter goroutine.
	Reaped bool
	Logger *slog.Logger
}

// Launch writes the command line to sink, starts executable with args and
// returns its pid without waiting for it. Stdout goes to sink, stderr is
// discarded. The caller keeps ownership of sink and may close it as soon as
// Launch returns; the child holds its own descriptor.
func (l Launcher) Launch(executable string, args []string, sink *os.File) (int, error) {
	logger := l.logger()
	if sink == nil {
		return 0, &SpawnError{Path: executable, Err: fmt.Errorf("nil log sink")}
	}
	if _, err := fmt.Fprintf(sink, "Spawning process: %s %s\n", executable, strings.Join(args, " ")); err != nil {
		logger.Warn("failed to write spawn line to core log", "path", sink.Name(), "error", err)
	}

	// #nosec G204 -- executable and args come from the local control plane by design
	cmd := exec.Command(executable, args...)
	cmd.Stdout = sink
	cmd.Stderr = nil
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, &SpawnError{Path: executable, Err: err}
	}
	pid := cmd.Process.Pid

	if l.Reaped {
		_ = cmd.Process.Release()
	} else {
		go func() {
			err := cmd.Wait()
			logger.Debug("core process exited", "pid", pid, "error", err)
		}()
	}
	logger.Info("core process spawned", "pid", pid, "bin_path", executable, "args", args)
	return pid, nil
}

func (l Launcher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
