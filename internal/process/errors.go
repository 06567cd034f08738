package process

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPID is returned when asked to terminate a non-positive pid.
	// Signaling pid 0 or a negative pid would address a whole process group.
	ErrInvalidPID = errors.New("invalid pid")

	// ErrStillAlive is returned when a process survives the forced kill grace period.
	ErrStillAlive = errors.New("process still alive after forced kill")
)

// Termination phases reported by TerminationError.
const (
	PhaseGraceful = "graceful"
	PhaseForced   = "forced"
)

// SpawnError reports that the OS refused to create the core process.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TerminationError reports that a termination signal could not be delivered,
// or that the process outlived the forced kill. A process that already exited
// is never reported as a TerminationError.
type TerminationError struct {
	PID   int
	Phase string
	Err   error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("failed to terminate pid %d (%s): %v", e.PID, e.Phase, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }
