package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/clash-service/internal/config"
	"github.com/loykin/clash-service/internal/history"
	"github.com/loykin/clash-service/internal/logger"
	"github.com/loykin/clash-service/internal/metrics"
	"github.com/loykin/clash-service/internal/process"
	"github.com/loykin/clash-service/internal/server"
	"github.com/loykin/clash-service/internal/supervisor"
)

// runServe loads the configuration and runs the daemon until SIGINT, SIGTERM
// or /stop_service.
func runServe(flags *GlobalFlags) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	log, closer, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting clash-service", "version", supervisor.Version, "listen", cfg.Server.Listen)
	if err := runDaemon(ctx, cfg, log, nil); err != nil {
		log.Error("daemon stopped with error", "error", err)
		return err
	}
	log.Info("clash-service stopped")
	return nil
}

// runDaemon wires the supervisor to the control plane and blocks until ctx is
// done, /stop_service is called or the listener fails. Both cores are stopped
// before it returns. ready, when set, receives the bound control-plane address.
func runDaemon(ctx context.Context, cfg *config.Config, log *slog.Logger, ready func(net.Addr)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// before the listener accepts requests
	reaped := process.InitReaper(ctx, log)

	var sink history.Sink
	if cfg.History.DSN != "" {
		s, err := history.NewSQLSinkFromDSN(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("open history sink: %w", err)
		}
		defer func() { _ = s.Close() }()
		sink = s
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if _, err := metrics.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
			return fmt.Errorf("start metrics listener: %w", err)
		}
	}

	opts := supervisor.Options{
		Launcher: process.Launcher{Reaped: reaped, Logger: log},
		Terminator: process.Terminator{
			Interval:  cfg.Terminate.Interval,
			Attempts:  cfg.Terminate.Attempts,
			KillGrace: cfg.Terminate.KillGrace,
			Logger:    log,
		},
		StateDir: cfg.Supervisor.StateDir,
		History:  sink,
		Logger:   log,
	}
	if cfg.Auxiliary.Enabled {
		opts.Auxiliary = &supervisor.AuxiliaryOptions{
			FollowPrimary: cfg.Auxiliary.FollowPrimary,
			BinPath:       cfg.Auxiliary.BinPath,
			LogFile:       cfg.Auxiliary.LogFile,
		}
	}
	sup := supervisor.New(opts)
	if err := sup.Recover(); err != nil {
		log.Warn("state recovery failed", "error", err)
	}
	go sup.Watch(ctx, cfg.Supervisor.WatchInterval)

	router := server.NewRouter(sup, cancel, "", log)
	srv, err := server.NewServer(cfg.Server.Listen, router.Handler(), log)
	if err != nil {
		return fmt.Errorf("start control plane: %w", err)
	}
	if ready != nil {
		ready(srv.Addr())
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-srv.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := sup.Shutdown(); err != nil {
		log.Error("failed to stop cores on shutdown", "error", err)
	}
	return serveErr
}
