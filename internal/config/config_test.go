package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "clash-service.toml")
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return file
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Fatalf("listen = %q", cfg.Server.Listen)
	}
	if cfg.Terminate.Interval != 100*time.Millisecond || cfg.Terminate.Attempts != 10 || cfg.Terminate.KillGrace != 100*time.Millisecond {
		t.Fatalf("unexpected terminate defaults: %+v", cfg.Terminate)
	}
	if cfg.Supervisor.WatchInterval != time.Second || cfg.Supervisor.StateDir != "" {
		t.Fatalf("unexpected supervisor defaults: %+v", cfg.Supervisor)
	}
	if cfg.Auxiliary.Enabled || !cfg.Auxiliary.FollowPrimary {
		t.Fatalf("unexpected auxiliary defaults: %+v", cfg.Auxiliary)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 7 {
		t.Fatalf("unexpected log rotation defaults: %+v", cfg.Log)
	}
}

func TestLoadFromTOML(t *testing.T) {
	file := writeTOML(t, `
[server]
listen = "localhost:40000"

[log]
level = "debug"
format = "json"
file = "/var/log/clash-service/daemon.log"

[terminate]
interval = "50ms"
attempts = 4
kill_grace = "250ms"

[supervisor]
watch_interval = "2s"
state_dir = "/var/lib/clash-service"

[auxiliary]
enabled = true
follow_primary = false
bin_path = "/usr/local/bin/verge-mihomo"
log_file = "/tmp/mihomo.log"

[history]
dsn = "sqlite:///var/lib/clash-service/history.db"
`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != "localhost:40000" {
		t.Fatalf("listen = %q", cfg.Server.Listen)
	}
	if cfg.Terminate.Interval != 50*time.Millisecond || cfg.Terminate.Attempts != 4 || cfg.Terminate.KillGrace != 250*time.Millisecond {
		t.Fatalf("terminate = %+v", cfg.Terminate)
	}
	if cfg.Supervisor.WatchInterval != 2*time.Second || cfg.Supervisor.StateDir != "/var/lib/clash-service" {
		t.Fatalf("supervisor = %+v", cfg.Supervisor)
	}
	if !cfg.Auxiliary.Enabled || cfg.Auxiliary.FollowPrimary || cfg.Auxiliary.BinPath != "/usr/local/bin/verge-mihomo" {
		t.Fatalf("auxiliary = %+v", cfg.Auxiliary)
	}
	lc := cfg.Logger()
	if lc.Level != "debug" || lc.Format != "json" || lc.File.Path != "/var/log/clash-service/daemon.log" || lc.File.MaxSizeMB != 10 {
		t.Fatalf("logger config = %+v", lc)
	}
	if cfg.History.DSN != "sqlite:///var/lib/clash-service/history.db" {
		t.Fatalf("history dsn = %q", cfg.History.DSN)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	file := writeTOML(t, `
[terminate]
attempts = 4
`)
	t.Setenv("CLASH_SERVICE_TERMINATE_ATTEMPTS", "7")
	t.Setenv("CLASH_SERVICE_SERVER_LISTEN", "127.0.0.1:45000")
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Terminate.Attempts != 7 {
		t.Fatalf("env should override file, attempts = %d", cfg.Terminate.Attempts)
	}
	if cfg.Server.Listen != "127.0.0.1:45000" {
		t.Fatalf("env should override default, listen = %q", cfg.Server.Listen)
	}
}

func TestLoadRejectsNonLoopback(t *testing.T) {
	file := writeTOML(t, `
[server]
listen = "0.0.0.0:33211"
`)
	_, err := Load(file)
	if err == nil || !strings.Contains(err.Error(), "server.listen") {
		t.Fatalf("expected server.listen error, got %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Listen: "[::1]:33211"},
		Log:        LogConfig{Level: "loud"},
		Terminate:  TerminateConfig{Attempts: -1},
		Supervisor: SupervisorConfig{WatchInterval: -time.Second},
		Auxiliary:  AuxiliaryConfig{Enabled: true},
		Metrics:    MetricsConfig{Enabled: true, Listen: "10.0.0.1:9090"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"metrics.listen", "terminate.attempts", "watch_interval", "auxiliary.bin_path", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
	if strings.Contains(err.Error(), "server.listen") {
		t.Errorf("[::1] is loopback: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRequireLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:33211": true,
		"localhost:1":     true,
		"[::1]:80":        true,
		"0.0.0.0:33211":   false,
		"example.com:80":  false,
		"no-port":         false,
	}
	for addr, want := range cases {
		if got := requireLoopback(addr) == nil; got != want {
			t.Errorf("requireLoopback(%q) accepted = %v, want %v", addr, got, want)
		}
	}
}
