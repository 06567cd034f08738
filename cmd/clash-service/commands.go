package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/loykin/clash-service/internal/config"
	"github.com/loykin/clash-service/internal/history"
	"github.com/loykin/clash-service/internal/supervisor"
	"github.com/loykin/clash-service/pkg/client"
)

// command runs the client-side subcommands and prints to out.
type command struct {
	out io.Writer
}

func newClient(f ClientFlags) *client.Client {
	cfg := client.DefaultConfig()
	if f.APIUrl != "" {
		cfg.BaseURL = f.APIUrl
	}
	if f.APITimeout > 0 {
		cfg.Timeout = f.APITimeout
	}
	return client.New(cfg)
}

func (c command) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Version prints the CLI build version and, when reachable, the daemon's.
func (c command) Version(ctx context.Context, f ClientFlags) error {
	_, _ = fmt.Fprintf(c.out, "cli: %s %s\n", supervisor.ServiceName, supervisor.Version)
	v, err := newClient(f).Version(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(c.out, "daemon: unreachable")
		return nil
	}
	_, _ = fmt.Fprintf(c.out, "daemon: %s %s\n", v.Service, v.Version)
	return nil
}

type statusView struct {
	Healthy bool               `json:"healthy"`
	Running bool               `json:"running"`
	Config  *client.CoreConfig `json:"config,omitempty"`
}

// Status prints health and the running configuration.
func (c command) Status(ctx context.Context, f ClientFlags) error {
	cl := newClient(f)
	healthy, err := cl.IsHealthy(ctx)
	if err != nil {
		return err
	}
	view := statusView{Healthy: healthy}
	cfg, err := cl.GetClash(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil:
		view.Running = true
		view.Config = &cfg
	case errors.As(err, &apiErr):
		// core not running
	default:
		return err
	}
	return c.printJSON(view)
}

// Start asks the daemon to start, or replace, the core.
func (c command) Start(ctx context.Context, f StartFlags) error {
	err := newClient(f.ClientFlags).StartClash(ctx, client.CoreConfig{
		CoreType:   f.CoreType,
		BinPath:    f.BinPath,
		ConfigDir:  f.ConfigDir,
		ConfigFile: f.ConfigFile,
		LogFile:    f.LogFile,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "core started")
	return nil
}

// Stop asks the daemon to stop the core.
func (c command) Stop(ctx context.Context, f ClientFlags) error {
	if err := newClient(f).StopClash(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "core stopped")
	return nil
}

// Shutdown asks the daemon to stop its cores and exit.
func (c command) Shutdown(ctx context.Context, f ClientFlags) error {
	if err := newClient(f).StopService(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "daemon stopping")
	return nil
}

// History prints recorded lifecycle events read straight from the history
// database. The DSN defaults to the one in the daemon config.
func (c command) History(ctx context.Context, g GlobalFlags, f HistoryFlags) error {
	dsn := f.DSN
	if dsn == "" {
		cfg, err := config.Load(g.ConfigPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		dsn = cfg.History.DSN
	}
	if dsn == "" {
		return errors.New("no history database configured; set [history].dsn or pass --dsn")
	}
	sink, err := history.NewSQLSinkFromDSN(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()
	events, err := sink.Recent(ctx, f.Unit, f.Limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		_, _ = fmt.Fprintf(c.out, "%s\t%-9s\t%-5s\tpid=%d\t%s\n",
			e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.Unit, e.Type, e.PID, e.BinPath)
	}
	return nil
}
