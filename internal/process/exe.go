package process

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// MatchesExecutable reports whether pid is running the binary at path. It
// compares the resolved executable when the OS exposes it and falls back to
// the process name otherwise. Used to make sure a recorded pid was not
// recycled by an unrelated process.
func MatchesExecutable(pid int, path string) bool {
	if pid <= 0 || path == "" {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if exe, err := p.Exe(); err == nil && exe != "" {
		if samePath(exe, path) {
			return true
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil && samePath(exe, resolved) {
			return true
		}
	}
	name, err := p.Name()
	if err != nil {
		return false
	}
	return sameName(name, filepath.Base(path))
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func sameName(name, base string) bool {
	if runtime.GOOS == "windows" {
		name = strings.TrimSuffix(strings.ToLower(name), ".exe")
		base = strings.TrimSuffix(strings.ToLower(base), ".exe")
		return name == base
	}
	// Linux truncates comm to 15 bytes.
	if len(base) > 15 && len(name) == 15 {
		return strings.HasPrefix(base, name)
	}
	return name == base
}
