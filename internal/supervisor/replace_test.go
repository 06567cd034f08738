package supervisor

import (
	"bytes"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedLauncher holds every launch after the first until release is closed.
type gatedLauncher struct {
	*fakeOS
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLauncher) Launch(executable string, args []string, sink *os.File) (int, error) {
	if g.calls.Add(1) == 2 {
		close(g.entered)
		<-g.release
	}
	return g.fakeOS.Launch(executable, args, sink)
}

// loggingTerminator appends a line to path while stopping, like a core that
// logs its own shutdown.
type loggingTerminator struct {
	*fakeOS
	path string
}

func (l loggingTerminator) Terminate(pid int) error {
	fh, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err == nil {
		_, _ = fh.WriteString("OLD-CORE-SHUTDOWN-LINE with some padding to move the offset\n")
		_ = fh.Close()
	}
	return l.fakeOS.Terminate(pid)
}

func TestUnitReplaceKeepsRunningRecordVisible(t *testing.T) {
	f := newFakeOS()
	g := &gatedLauncher{fakeOS: f, entered: make(chan struct{}), release: make(chan struct{})}
	opts := f.unitOptions("primary")
	opts.Launcher = g
	u := NewUnit(opts)

	cfgA := testConfig(t, "/usr/bin/clash-a")
	require.NoError(t, u.Start(cfgA))
	first := u.Status().PID

	cfgB := testConfig(t, "/usr/bin/clash-b")
	done := make(chan error, 1)
	go func() { done <- u.Start(cfgB) }()

	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("second launch never started")
	}
	assert.True(t, u.Healthy(), "unit must stay healthy while its core is replaced")
	got, err := u.Config()
	require.NoError(t, err)
	assert.Equal(t, cfgA, got)
	assert.Equal(t, first, u.Status().PID)

	close(g.release)
	require.NoError(t, <-done)
	got, err = u.Config()
	require.NoError(t, err)
	assert.Equal(t, cfgB, got)
	assert.NotEqual(t, first, u.Status().PID)
}

func TestUnitFailedReplaceClearsRecord(t *testing.T) {
	f := newFakeOS()
	u := NewUnit(f.unitOptions("primary"))
	require.NoError(t, u.Start(testConfig(t, "/usr/bin/clash-a")))

	f.launchErr = errors.New("exec format error")
	require.Error(t, u.Start(testConfig(t, "/usr/bin/clash-b")))

	rec := u.Status()
	assert.False(t, rec.Running)
	assert.Zero(t, rec.PID)
	assert.False(t, u.Healthy())
	assert.Zero(t, f.aliveCount())
}

func TestUnitReplaceTruncatesAfterOldCoreExits(t *testing.T) {
	f := newFakeOS()
	cfg := testConfig(t, "/usr/bin/clash")
	opts := f.unitOptions("primary")
	opts.Terminator = loggingTerminator{fakeOS: f, path: cfg.LogFile}
	u := NewUnit(opts)

	require.NoError(t, u.Start(cfg))
	require.NoError(t, u.Start(cfg))

	b, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "OLD-CORE-SHUTDOWN-LINE")
	assert.False(t, bytes.ContainsRune(b, 0), "log must not contain holes")
	assert.Contains(t, string(b), "Spawning process: /usr/bin/clash")
}
