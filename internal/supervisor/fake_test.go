package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/loykin/clash-service/internal/history"
)

// fakeOS stands in for the process table.
type fakeOS struct {
	mu           sync.Mutex
	nextPID      int
	alive        map[int]bool
	exe          map[int]string
	launched     []string
	terminated   []int
	launchErr    error
	terminateErr error
}

func newFakeOS() *fakeOS {
	return &fakeOS{nextPID: 1000, alive: map[int]bool{}, exe: map[int]string{}}
}

func (f *fakeOS) Launch(executable string, args []string, sink *os.File) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return 0, f.launchErr
	}
	if sink == nil {
		return 0, errors.New("nil sink")
	}
	_, _ = fmt.Fprintf(sink, "Spawning process: %s\n", executable)
	f.nextPID++
	f.alive[f.nextPID] = true
	f.exe[f.nextPID] = executable
	f.launched = append(f.launched, executable)
	return f.nextPID, nil
}

func (f *fakeOS) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminateErr != nil {
		return f.terminateErr
	}
	f.alive[pid] = false
	f.terminated = append(f.terminated, pid)
	return nil
}

func (f *fakeOS) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeOS) Matches(pid int, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exe[pid] == path
}

func (f *fakeOS) kill(pid int) {
	f.mu.Lock()
	f.alive[pid] = false
	f.mu.Unlock()
}

func (f *fakeOS) aliveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alive {
		if a {
			n++
		}
	}
	return n
}

func (f *fakeOS) unitOptions(name string) UnitOptions {
	return UnitOptions{
		Name:       name,
		Launcher:   f,
		Terminator: f,
		Alive:      f.Alive,
		Matches:    f.Matches,
	}
}

func (f *fakeOS) options() Options {
	return Options{Launcher: f, Terminator: f, Alive: f.Alive, Matches: f.Matches}
}

// recordingSink collects history events.
type recordingSink struct {
	mu     sync.Mutex
	events []history.Event
}

func (r *recordingSink) Send(_ context.Context, e history.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) types() []history.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]history.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig(t *testing.T, bin string) CoreConfig {
	t.Helper()
	dir := t.TempDir()
	return CoreConfig{
		CoreType:   "verge-mihomo",
		BinPath:    bin,
		ConfigDir:  dir,
		ConfigFile: filepath.Join(dir, "config.yaml"),
		LogFile:    filepath.Join(dir, "core.log"),
	}
}
