package client

import (
	"encoding/json"
	"fmt"
)

// CoreConfig is the start configuration sent to /start_clash.
type CoreConfig struct {
	CoreType   string `json:"core_type,omitempty"`
	BinPath    string `json:"bin_path"`
	ConfigDir  string `json:"config_dir"`
	ConfigFile string `json:"config_file"`
	LogFile    string `json:"log_file"`
}

// VersionInfo is the /version payload.
type VersionInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// envelope is the daemon's uniform reply.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError is a reply with a non-zero envelope code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Msg)
}
