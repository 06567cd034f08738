package process

import (
	"os"
	"testing"
	"time"
)

func TestAliveSelf(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatalf("current process should be alive")
	}
}

func TestAliveInvalid(t *testing.T) {
	if Alive(0) || Alive(-5) {
		t.Fatalf("non-positive pids are never alive")
	}
}

func TestAliveAfterExit(t *testing.T) {
	requireUnix(t)
	pid, err := Launcher{}.Launch("/bin/sh", []string{"-c", "exit 0"}, openSink(t))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return !Alive(pid) }) {
		t.Fatalf("pid %d still reported alive after exit", pid)
	}
}

func TestMatchesExecutable(t *testing.T) {
	requireUnix(t)
	pid, err := Launcher{}.Launch("/bin/sleep", []string{"5"}, openSink(t))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { _ = DefaultTerminator(nil).Terminate(pid) })

	if !MatchesExecutable(pid, "/bin/sleep") {
		t.Fatalf("pid %d should match /bin/sleep", pid)
	}
	if MatchesExecutable(pid, "/usr/local/bin/mihomo") {
		t.Fatalf("pid %d should not match an unrelated binary", pid)
	}
	if MatchesExecutable(0, "/bin/sleep") || MatchesExecutable(pid, "") {
		t.Fatalf("invalid arguments must not match")
	}
}

func TestSameName(t *testing.T) {
	cases := []struct {
		name, base string
		want       bool
	}{
		{"sleep", "sleep", true},
		{"mihomo", "clash", false},
		{"verge-mihomo-al", "verge-mihomo-alpha", true},
		{"verge-mihomo", "verge-mihomo-alpha", false},
	}
	for _, c := range cases {
		if got := sameName(c.name, c.base); got != c.want {
			t.Errorf("sameName(%q, %q) = %v, want %v", c.name, c.base, got, c.want)
		}
	}
}
