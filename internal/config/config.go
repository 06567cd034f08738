package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/clash-service/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. CLASH_SERVICE_SERVER_LISTEN.
const EnvPrefix = "CLASH_SERVICE"

// DefaultListen is the fixed control-plane address the desktop client dials.
const DefaultListen = "127.0.0.1:33211"

// Config is the daemon configuration. Every field has a default, so the
// daemon runs without a config file, as service managers launch it.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Terminate  TerminateConfig  `mapstructure:"terminate"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Auxiliary  AuxiliaryConfig  `mapstructure:"auxiliary"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	History    HistoryConfig    `mapstructure:"history"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TerminateConfig is the graceful-then-forced escalation budget.
type TerminateConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Attempts  int           `mapstructure:"attempts"`
	KillGrace time.Duration `mapstructure:"kill_grace"`
}

type SupervisorConfig struct {
	// WatchInterval is how often running cores are checked for unexpected exit; 0 disables.
	WatchInterval time.Duration `mapstructure:"watch_interval"`
	// StateDir holds per-unit state files; empty disables persistence and recovery.
	StateDir string `mapstructure:"state_dir"`
}

// AuxiliaryConfig describes the second core that follows the primary one.
type AuxiliaryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	FollowPrimary bool   `mapstructure:"follow_primary"`
	BinPath       string `mapstructure:"bin_path"`
	LogFile       string `mapstructure:"log_file"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", DefaultListen)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatText)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)

	v.SetDefault("terminate.interval", 100*time.Millisecond)
	v.SetDefault("terminate.attempts", 10)
	v.SetDefault("terminate.kill_grace", 100*time.Millisecond)

	v.SetDefault("supervisor.watch_interval", time.Second)
	v.SetDefault("supervisor.state_dir", "")

	v.SetDefault("auxiliary.enabled", false)
	v.SetDefault("auxiliary.follow_primary", true)
	v.SetDefault("auxiliary.bin_path", "")
	v.SetDefault("auxiliary.log_file", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:33212")

	v.SetDefault("history.dsn", "")
}

// Load reads the TOML file at path, when path is non-empty, applies
// CLASH_SERVICE_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. Both listeners must stay on loopback:
// the control plane has no authentication.
func (c *Config) Validate() error {
	var errs []error
	if err := requireLoopback(c.Server.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	}
	if c.Metrics.Enabled {
		if err := requireLoopback(c.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("metrics.listen: %w", err))
		}
	}
	if c.Terminate.Interval < 0 || c.Terminate.KillGrace < 0 {
		errs = append(errs, errors.New("terminate: durations must not be negative"))
	}
	if c.Terminate.Attempts < 0 {
		errs = append(errs, errors.New("terminate.attempts must not be negative"))
	}
	if c.Supervisor.WatchInterval < 0 {
		errs = append(errs, errors.New("supervisor.watch_interval must not be negative"))
	}
	if c.Auxiliary.Enabled && strings.TrimSpace(c.Auxiliary.BinPath) == "" {
		errs = append(errs, errors.New("auxiliary.bin_path is required when auxiliary is enabled"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Logger converts the log section to logger.Config.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File: logger.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
	}
}

func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("host %q is not a loopback address", host)
	}
	return nil
}
