package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func openSink(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "core.log"))
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestLaunchWritesSpawnLineAndOutput(t *testing.T) {
	requireUnix(t)
	sink := openSink(t)
	pid, err := Launcher{}.Launch("/bin/sh", []string{"-c", "echo hello"}, sink)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("expected positive pid, got %d", pid)
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		b, _ := os.ReadFile(sink.Name())
		return strings.Contains(string(b), "hello")
	})
	b, _ := os.ReadFile(sink.Name())
	if !ok {
		t.Fatalf("child output missing from sink: %q", string(b))
	}
	first, _, _ := strings.Cut(string(b), "\n")
	if first != "Spawning process: /bin/sh -c echo hello" {
		t.Fatalf("unexpected spawn line %q", first)
	}
}

func TestLaunchReturnsWithoutWaiting(t *testing.T) {
	requireUnix(t)
	sink := openSink(t)
	begin := time.Now()
	pid, err := Launcher{}.Launch("/bin/sleep", []string{"5"}, sink)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { _ = DefaultTerminator(nil).Terminate(pid) })
	if time.Since(begin) > time.Second {
		t.Fatalf("Launch blocked for %v", time.Since(begin))
	}
	if !Alive(pid) {
		t.Fatalf("pid %d should be alive", pid)
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	sink := openSink(t)
	missing := filepath.Join(t.TempDir(), "no-such-core")
	_, err := Launcher{}.Launch(missing, nil, sink)
	var se *SpawnError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpawnError, got %T %v", err, err)
	}
	if se.Path != missing {
		t.Fatalf("SpawnError path = %q", se.Path)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error text should name the binary: %v", err)
	}
}

func TestLaunchNilSink(t *testing.T) {
	_, err := Launcher{}.Launch("/bin/true", nil, nil)
	var se *SpawnError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpawnError for nil sink, got %v", err)
	}
}

func TestConfigureSysProcAttr(t *testing.T) {
	cmd := exec.Command("true")
	configureSysProcAttr(cmd)
	checkSysProcAttrs(t, cmd)
}
