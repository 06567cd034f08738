package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// writeStateFile stores "<pid>\n<config JSON>" at path.
func writeStateFile(path string, pid int, cfg CoreConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	data := strconv.Itoa(pid) + "\n" + string(b) + "\n"
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readStateFile parses a file written by writeStateFile. A file holding only
// a pid yields a nil config.
func readStateFile(path string) (int, *CoreConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}
	pidLine, rest, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, nil, fmt.Errorf("parse pid: %w", err)
	}
	if pid <= 0 {
		return 0, nil, fmt.Errorf("parse pid: non-positive pid %d", pid)
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return pid, nil, nil
	}
	var cfg CoreConfig
	if err := json.Unmarshal([]byte(rest), &cfg); err != nil {
		return pid, nil, nil
	}
	return pid, &cfg, nil
}
