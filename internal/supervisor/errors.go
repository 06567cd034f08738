package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by status queries on an idle unit.
	ErrNotRunning = errors.New("core is not running")

	// ErrInvalidRecord is returned when a record update would leave the
	// running flag and the pid disagreeing.
	ErrInvalidRecord = errors.New("invalid process record")
)

// LogOpenError reports that the core log file could not be created.
type LogOpenError struct {
	Path string
	Err  error
}

func (e *LogOpenError) Error() string {
	return fmt.Sprintf("failed to open log file %s: %v", e.Path, e.Err)
}

func (e *LogOpenError) Unwrap() error { return e.Err }
