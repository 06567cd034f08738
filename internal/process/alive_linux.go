//go:build linux

package process

import (
	"bytes"
	"os"
	"strconv"
)

// Alive reports whether pid is a live process. Zombies count as exited: they
// keep their slot in the process table until reaped but run no code.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if !processExists(pid) {
		return false
	}
	return !isZombie(pid)
}

// isZombie returns true if /proc/<pid>/status reports state Z.
func isZombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	for _, line := range bytes.Split(b, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("State:")) {
			return bytes.Contains(line, []byte("Z"))
		}
	}
	return false
}
