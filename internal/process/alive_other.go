//go:build !linux && !windows

package process

import (
	"slices"

	"github.com/shirou/gopsutil/v4/process"
)

// Alive reports whether pid is a live, non-zombie process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if !processExists(pid) {
		return false
	}
	return !isZombie(pid)
}

func isZombie(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return false
	}
	return slices.Contains(status, process.Zombie)
}
