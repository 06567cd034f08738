package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/loykin/clash-service/internal/history"
)

// Unit names.
const (
	PrimaryUnit   = "primary"
	AuxiliaryUnit = "auxiliary"
)

// AuxiliaryOptions enables the auxiliary unit, which follows the primary one.
type AuxiliaryOptions struct {
	// FollowPrimary starts the auxiliary core on every primary start, not
	// only when it is already running.
	FollowPrimary bool
	// BinPath and LogFile override the primary configuration for the
	// auxiliary core; the config directory and file are shared.
	BinPath string
	LogFile string
}

// Options configures a Supervisor. Launcher, Terminator, Alive and Matches are
// shared by both units.
type Options struct {
	Launcher   Launcher
	Terminator Terminator
	Alive      func(pid int) bool
	Matches    func(pid int, path string) bool
	StateDir   string
	History    history.Sink
	Logger     *slog.Logger
	// Auxiliary is nil when only the primary core is supervised.
	Auxiliary *AuxiliaryOptions
}

// Supervisor owns the primary unit and the optional auxiliary unit. The two
// units are independent state machines; the only coupling is the primary's
// post-start and post-stop hooks.
type Supervisor struct {
	primary   *Unit
	auxiliary *Unit
	auxOpts   AuxiliaryOptions
	logger    *slog.Logger
}

// New creates a supervisor with idle units.
func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{logger: logger}
	unitOpts := func(name string) UnitOptions {
		return UnitOptions{
			Name:       name,
			Launcher:   opts.Launcher,
			Terminator: opts.Terminator,
			Alive:      opts.Alive,
			Matches:    opts.Matches,
			StateDir:   opts.StateDir,
			History:    opts.History,
			Logger:     logger,
		}
	}
	primary := unitOpts(PrimaryUnit)
	if opts.Auxiliary != nil {
		s.auxOpts = *opts.Auxiliary
		s.auxiliary = NewUnit(unitOpts(AuxiliaryUnit))
		primary.AfterStart = s.syncAuxiliary
		primary.AfterStop = s.stopAuxiliary
	}
	s.primary = NewUnit(primary)
	return s
}

// Primary returns the primary unit.
func (s *Supervisor) Primary() *Unit { return s.primary }

// Auxiliary returns the auxiliary unit, or nil when disabled.
func (s *Supervisor) Auxiliary() *Unit { return s.auxiliary }

// Version reports the service name and build version.
func (s *Supervisor) Version() VersionInfo {
	return VersionInfo{Service: ServiceName, Version: Version}
}

// IsHealthy reports whether every enabled unit runs a core.
func (s *Supervisor) IsHealthy() bool {
	if !s.primary.Healthy() {
		return false
	}
	return s.auxiliary == nil || s.auxiliary.Healthy()
}

// GetClash returns the configuration of the running primary core.
func (s *Supervisor) GetClash() (CoreConfig, error) {
	return s.primary.Config()
}

// StartClash starts the primary core with cfg, replacing a running one.
func (s *Supervisor) StartClash(cfg CoreConfig) error {
	return s.primary.Start(cfg)
}

// StopClash stops the primary core and, through its hook, the auxiliary one.
func (s *Supervisor) StopClash() error {
	return s.primary.Stop()
}

// Shutdown stops every unit. It is used when the daemon exits.
func (s *Supervisor) Shutdown() error {
	var errs []error
	if err := s.primary.Stop(); err != nil {
		errs = append(errs, err)
	}
	if s.auxiliary != nil {
		if err := s.auxiliary.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recover re-adopts cores recorded by a previous daemon instance.
func (s *Supervisor) Recover() error {
	err := s.primary.Recover()
	if s.auxiliary != nil {
		err = errors.Join(err, s.auxiliary.Recover())
	}
	return err
}

// Watch checks for cores that exited on their own every interval until ctx
// is done. A non-positive interval disables watching.
func (s *Supervisor) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.primary.CheckExited()
			if s.auxiliary != nil {
				s.auxiliary.CheckExited()
			}
		}
	}
}

// syncAuxiliary restarts the auxiliary core after a primary start so it
// picks up the new configuration. An idle auxiliary core is only started
// when it follows the primary. Failures are logged, not returned: the
// primary start already succeeded.
func (s *Supervisor) syncAuxiliary(cfg CoreConfig) {
	if !s.auxiliary.Healthy() && !s.auxOpts.FollowPrimary {
		return
	}
	if err := s.auxiliary.Start(s.auxiliaryConfig(cfg)); err != nil {
		s.logger.Error("failed to restart auxiliary core", "error", err)
	}
}

func (s *Supervisor) stopAuxiliary() {
	if err := s.auxiliary.Stop(); err != nil {
		s.logger.Error("failed to stop auxiliary core", "error", err)
	}
}

func (s *Supervisor) auxiliaryConfig(cfg CoreConfig) CoreConfig {
	aux := cfg
	if s.auxOpts.BinPath != "" {
		aux.BinPath = s.auxOpts.BinPath
	}
	if s.auxOpts.LogFile != "" {
		aux.LogFile = s.auxOpts.LogFile
	} else if cfg.LogFile != "" {
		aux.LogFile = cfg.LogFile + "." + AuxiliaryUnit
	}
	return aux
}
