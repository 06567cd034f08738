//go:build !windows

package process

import (
	"log/slog"
	"os/exec"
	"testing"
	"time"
)

func TestReapChildrenCollectsZombie(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()

	// exited but unreaped: present in the table, not alive
	if !waitFor(t, 2*time.Second, func() bool { return !Alive(pid) }) {
		t.Fatalf("child %d did not exit", pid)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		reapChildren(slog.Default())
		return !processExists(pid)
	}) {
		t.Fatalf("child %d was not reaped", pid)
	}
}

func TestReapChildrenNoChildren(t *testing.T) {
	// nothing to reap must return promptly
	done := make(chan struct{})
	go func() {
		reapChildren(slog.Default())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reapChildren blocked")
	}
}
