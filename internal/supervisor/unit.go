package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/loykin/clash-service/internal/history"
	"github.com/loykin/clash-service/internal/metrics"
	"github.com/loykin/clash-service/internal/process"
)

// Launcher starts a core and returns its pid.
type Launcher interface {
	Launch(executable string, args []string, sink *os.File) (int, error)
}

// Terminator stops a pid within a bounded time; an exited pid is success.
type Terminator interface {
	Terminate(pid int) error
}

// UnitOptions configures a Unit. Zero values fall back to the process package.
type UnitOptions struct {
	Name       string
	Launcher   Launcher
	Terminator Terminator
	// Alive reports whether pid is still running.
	Alive func(pid int) bool
	// Matches reports whether pid runs the binary at path; used by Recover.
	Matches func(pid int, path string) bool
	// StateDir enables the per-unit state file when non-empty.
	StateDir string
	History  history.Sink
	Logger   *slog.Logger

	// AfterStart runs after every successful Start, still under the unit lock.
	AfterStart func(cfg CoreConfig)
	// AfterStop runs after every successful Stop, still under the unit lock.
	AfterStop func()
}

// Unit supervises one core process. Lifecycle operations are serialized by
// an exclusive lock; queries read Store snapshots and never wait for them.
type Unit struct {
	name       string
	mu         sync.Mutex // serializes Start, Stop, CheckExited and Recover
	state      State      // guarded by mu
	store      Store
	launcher   Launcher
	terminator Terminator
	alive      func(int) bool
	matches    func(int, string) bool
	stateFile  string
	history    history.Sink
	logger     *slog.Logger
	afterStart func(CoreConfig)
	afterStop  func()
}

// NewUnit creates an idle unit.
func NewUnit(opts UnitOptions) *Unit {
	u := &Unit{
		name:       opts.Name,
		launcher:   opts.Launcher,
		terminator: opts.Terminator,
		alive:      opts.Alive,
		matches:    opts.Matches,
		history:    opts.History,
		logger:     opts.Logger,
		afterStart: opts.AfterStart,
		afterStop:  opts.AfterStop,
	}
	if u.name == "" {
		u.name = "primary"
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	u.logger = u.logger.With("unit", u.name)
	if u.launcher == nil {
		u.launcher = process.Launcher{Logger: u.logger}
	}
	if u.terminator == nil {
		u.terminator = process.DefaultTerminator(u.logger)
	}
	if u.alive == nil {
		u.alive = process.Alive
	}
	if u.matches == nil {
		u.matches = process.MatchesExecutable
	}
	if opts.StateDir != "" {
		u.stateFile = filepath.Join(opts.StateDir, u.name+".pid")
	}
	for _, st := range allStates {
		metrics.SetCurrentState(u.name, st.String(), st == StateIdle)
	}
	return u
}

// Name returns the unit name.
func (u *Unit) Name() string { return u.name }

// Start launches cfg. A running core is stopped first, so the latest start
// always wins. If the log file cannot be opened the record is left unchanged.
// While a running core is replaced the record keeps describing it until the
// new one is recorded, so readers never see the unit idle in between.
func (u *Unit) Start(cfg CoreConfig) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	sink, err := openLogSink(cfg.LogFile)
	if err != nil {
		u.logger.Error("failed to open core log", "path", cfg.LogFile, "error", err)
		return err
	}
	defer func() { _ = sink.Close() }()

	replaced := false
	if prev := u.store.Read(); prev.Running {
		u.logger.Info("replacing running core", "pid", prev.PID)
		if err := u.terminateLocked(prev); err != nil {
			return err
		}
		replaced = true
	}
	// the previous core is gone, so nothing is left to clear
	abort := func() {
		if replaced {
			u.clear()
			return
		}
		u.setState(StateIdle)
	}

	// truncate only now: a replaced core may share the file until it exits
	if err := resetLogSink(sink); err != nil {
		u.logger.Error("failed to truncate core log", "path", cfg.LogFile, "error", err)
		abort()
		return err
	}

	u.setState(StateStarting)
	pid, err := u.launcher.Launch(cfg.BinPath, cfg.Args(), sink)
	if err != nil {
		metrics.IncSpawnFailure(u.name)
		abort()
		u.logger.Error("failed to start core", "bin_path", cfg.BinPath, "error", err)
		return err
	}

	if _, err := u.store.Write(func(r Record) Record {
		c := cfg
		return Record{PID: pid, Running: true, Config: &c}
	}); err != nil {
		// a launcher reporting a non-positive pid; do not leave it untracked
		_ = u.terminator.Terminate(pid)
		abort()
		return err
	}
	u.setState(StateRunning)
	u.persist(pid, cfg)
	metrics.IncStart(u.name)
	u.emit(history.EventStart, pid, &cfg)
	u.logger.Info("core started", "pid", pid, "bin_path", cfg.BinPath)

	if u.afterStart != nil {
		u.afterStart(cfg)
	}
	return nil
}

// Stop terminates the running core. Stopping an idle unit succeeds. If the
// core cannot be terminated the unit stays running and the error is returned.
func (u *Unit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.stopLocked(); err != nil {
		return err
	}
	if u.afterStop != nil {
		u.afterStop()
	}
	return nil
}

// stopLocked terminates first and clears the record only once the pid is gone.
func (u *Unit) stopLocked() error {
	rec := u.store.Read()
	if !rec.Running {
		return nil
	}
	if err := u.terminateLocked(rec); err != nil {
		return err
	}
	u.clear()
	return nil
}

// terminateLocked stops the core described by rec and leaves the record as
// it is. On failure the unit is back in StateRunning.
func (u *Unit) terminateLocked(rec Record) error {
	u.setState(StateStopping)
	if err := u.terminator.Terminate(rec.PID); err != nil {
		u.setState(StateRunning)
		u.logger.Error("failed to stop core", "pid", rec.PID, "error", err)
		return err
	}
	metrics.IncStop(u.name)
	u.emit(history.EventStop, rec.PID, rec.Config)
	u.logger.Info("core stopped", "pid", rec.PID)
	return nil
}

// clear drops the pid but keeps the last config.
func (u *Unit) clear() {
	_, _ = u.store.Write(func(r Record) Record {
		return Record{Config: r.Config}
	})
	u.setState(StateIdle)
	u.unpersist()
	metrics.ClearCore(u.name)
}

// Healthy reports whether the unit tracks a running core with a valid pid.
func (u *Unit) Healthy() bool {
	rec := u.store.Read()
	return rec.Running && rec.PID > 0
}

// Status returns a snapshot of the record.
func (u *Unit) Status() Record { return u.store.Read() }

// Config returns the configuration of the running core, or ErrNotRunning.
func (u *Unit) Config() (CoreConfig, error) {
	rec := u.store.Read()
	if !rec.Running || rec.Config == nil {
		return CoreConfig{}, ErrNotRunning
	}
	return *rec.Config, nil
}

// CheckExited clears the record when the tracked core died on its own and
// reports whether it did. It skips the check while a lifecycle operation
// holds the lock.
func (u *Unit) CheckExited() bool {
	if !u.mu.TryLock() {
		return false
	}
	defer u.mu.Unlock()

	rec := u.store.Read()
	if !rec.Running {
		return false
	}
	if u.alive(rec.PID) {
		metrics.ObserveCore(u.name, rec.PID)
		return false
	}
	u.clear()
	metrics.IncUnexpectedExit(u.name)
	u.emit(history.EventExit, rec.PID, rec.Config)
	u.logger.Warn("core exited unexpectedly", "pid", rec.PID)
	return true
}

// Recover adopts the core recorded in the state file when it is still alive
// and still runs the recorded binary. Stale files are removed. Without a
// state directory Recover does nothing.
func (u *Unit) Recover() error {
	if u.stateFile == "" {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	pid, cfg, err := readStateFile(u.stateFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		u.logger.Warn("discarding unreadable state file", "path", u.stateFile, "error", err)
		u.unpersist()
		return nil
	}
	if cfg == nil || !u.alive(pid) || !u.matches(pid, cfg.BinPath) {
		u.logger.Info("discarding stale state file", "path", u.stateFile, "pid", pid)
		u.unpersist()
		return nil
	}
	if _, err := u.store.Write(func(Record) Record {
		return Record{PID: pid, Running: true, Config: cfg}
	}); err != nil {
		return err
	}
	u.setState(StateRunning)
	u.logger.Info("adopted running core", "pid", pid, "bin_path", cfg.BinPath)
	return nil
}

// setState records a transition; callers hold mu.
func (u *Unit) setState(next State) {
	prev := u.state
	if prev == next {
		return
	}
	u.state = next
	metrics.RecordStateTransition(u.name, prev.String(), next.String())
	metrics.SetCurrentState(u.name, prev.String(), false)
	metrics.SetCurrentState(u.name, next.String(), true)
}

func (u *Unit) persist(pid int, cfg CoreConfig) {
	if u.stateFile == "" {
		return
	}
	if err := writeStateFile(u.stateFile, pid, cfg); err != nil {
		u.logger.Warn("failed to write state file", "path", u.stateFile, "error", err)
	}
}

func (u *Unit) unpersist() {
	if u.stateFile == "" {
		return
	}
	if err := os.Remove(u.stateFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn("failed to remove state file", "path", u.stateFile, "error", err)
	}
}

func (u *Unit) emit(t history.EventType, pid int, cfg *CoreConfig) {
	if u.history == nil {
		return
	}
	e := history.Event{Type: t, OccurredAt: time.Now().UTC(), Unit: u.name, PID: pid}
	if cfg != nil {
		e.BinPath = cfg.BinPath
		if b, err := json.Marshal(cfg); err == nil {
			e.Config = string(b)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := u.history.Send(ctx, e); err != nil {
		u.logger.Warn("failed to record history event", "event", t, "error", err)
	}
}

// openLogSink creates the core log file without touching its contents.
func openLogSink(path string) (*os.File, error) {
	if path == "" {
		return nil, &LogOpenError{Path: path, Err: errors.New("empty path")}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &LogOpenError{Path: path, Err: err}
	}
	return f, nil
}

// resetLogSink empties the log and rewinds to its start.
func resetLogSink(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return &LogOpenError{Path: f.Name(), Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return &LogOpenError{Path: f.Name(), Err: err}
	}
	return nil
}
