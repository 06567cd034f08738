package process

import (
	"log/slog"
	"time"

	"github.com/loykin/clash-service/internal/metrics"
)

// Default escalation parameters: ten 100ms polls after the graceful signal,
// then one more 100ms grace after the forced kill.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollAttempts = 10
	DefaultKillGrace    = 100 * time.Millisecond
)

// Terminator stops a process in two phases: a graceful request, polled for a
// bounded number of attempts, then a forced kill with a short grace period.
// Total blocking time never exceeds Interval*Attempts + KillGrace plus the
// cost of the liveness probes.
type Terminator struct {
	Interval  time.Duration
	Attempts  int
	KillGrace time.Duration
	Logger    *slog.Logger

	// test seams; nil means the platform implementation
	signal func(pid int, force bool) error
	alive  func(pid int) bool
	sleep  func(time.Duration)
}

// DefaultTerminator returns a Terminator with the default escalation budget.
func DefaultTerminator(logger *slog.Logger) Terminator {
	return Terminator{
		Interval:  DefaultPollInterval,
		Attempts:  DefaultPollAttempts,
		KillGrace: DefaultKillGrace,
		Logger:    logger,
	}
}

// Terminate asks pid to exit, escalating to a forced kill when the graceful
// budget runs out. Terminating a process that already exited succeeds.
func (t Terminator) Terminate(pid int) error {
	if pid <= 0 {
		return &TerminationError{PID: pid, Phase: PhaseGraceful, Err: ErrInvalidPID}
	}
	logger := t.logger()
	if !t.isAlive(pid) {
		logger.Debug("process already exited", "pid", pid)
		return nil
	}

	if err := t.send(pid, false); err != nil {
		if isProcessGone(err) {
			return nil
		}
		return &TerminationError{PID: pid, Phase: PhaseGraceful, Err: err}
	}
	if t.waitExit(pid, t.Attempts) {
		logger.Debug("process exited after graceful request", "pid", pid)
		return nil
	}

	logger.Warn("process ignored graceful termination, killing", "pid", pid, "attempts", t.Attempts, "interval", t.Interval)
	metrics.IncForcedKill()
	if err := t.send(pid, true); err != nil {
		if isProcessGone(err) {
			return nil
		}
		return &TerminationError{PID: pid, Phase: PhaseForced, Err: err}
	}
	if t.waitExit(pid, t.graceAttempts()) {
		return nil
	}
	return &TerminationError{PID: pid, Phase: PhaseForced, Err: ErrStillAlive}
}

// waitExit polls for exit up to attempts times, pausing Interval before each probe.
func (t Terminator) waitExit(pid, attempts int) bool {
	for i := 0; i < attempts; i++ {
		t.pause(t.Interval)
		if !t.isAlive(pid) {
			return true
		}
	}
	return false
}

// graceAttempts spreads KillGrace over Interval-sized polls; at least one probe runs.
func (t Terminator) graceAttempts() int {
	if t.Interval <= 0 || t.KillGrace <= t.Interval {
		return 1
	}
	return int(t.KillGrace / t.Interval)
}

func (t Terminator) send(pid int, force bool) error {
	if t.signal != nil {
		return t.signal(pid, force)
	}
	return sendSignal(pid, force)
}

func (t Terminator) isAlive(pid int) bool {
	if t.alive != nil {
		return t.alive(pid)
	}
	return Alive(pid)
}

func (t Terminator) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if t.sleep != nil {
		t.sleep(d)
		return
	}
	time.Sleep(d)
}

func (t Terminator) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
