package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the command tree. Without a subcommand the daemon is
// served, which is how service managers launch it.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "clash-service",
		Short: "Privileged supervisor for the Clash proxy core",
		Long: `clash-service runs as a system service and starts, stops and monitors
the proxy core on behalf of an unprivileged desktop application, through a
loopback-only HTTP control plane.

Examples:
  clash-service                      # run the daemon (service managers call this)
  clash-service serve --config /etc/clash-service.toml
  clash-service status
  clash-service start --bin-path /usr/bin/verge-mihomo --config-dir /etc/clash \
      --config-file /etc/clash/config.yaml --log-file /var/log/clash.log
  clash-service stop`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(globalFlags)
		},
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", os.Getenv("CLASH_SERVICE_CONFIG"), "path to TOML config file (optional)")

	c := command{}
	root.AddCommand(
		createServeCommand(globalFlags),
		createVersionCommand(&c),
		createStatusCommand(&c),
		createStartCommand(&c),
		createStopCommand(&c),
		createShutdownCommand(&c),
		createHistoryCommand(&c, globalFlags),
	)
	return root
}

func addClientFlags(cmd *cobra.Command, f *ClientFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:33211)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(globalFlags)
		},
	}
}

func createVersionCommand(c *command) *cobra.Command {
	f := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI and daemon versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.Version(cmd.Context(), *f)
		},
	}
	addClientFlags(cmd, f)
	return cmd
}

func createStatusCommand(c *command) *cobra.Command {
	f := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show core health and running configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.Status(cmd.Context(), *f)
		},
	}
	addClientFlags(cmd, f)
	return cmd
}

func createStartCommand(c *command) *cobra.Command {
	f := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start or replace the core",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.Start(cmd.Context(), *f)
		},
	}
	addClientFlags(cmd, &f.ClientFlags)
	cmd.Flags().StringVar(&f.CoreType, "core-type", "", "core type label (optional)")
	cmd.Flags().StringVar(&f.BinPath, "bin-path", "", "core executable (required)")
	cmd.Flags().StringVar(&f.ConfigDir, "config-dir", "", "core working directory (required)")
	cmd.Flags().StringVar(&f.ConfigFile, "config-file", "", "core config file (required)")
	cmd.Flags().StringVar(&f.LogFile, "log-file", "", "core log file (required)")
	for _, name := range []string{"bin-path", "config-dir", "config-file", "log-file"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func createStopCommand(c *command) *cobra.Command {
	f := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the core",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.Stop(cmd.Context(), *f)
		},
	}
	addClientFlags(cmd, f)
	return cmd
}

func createShutdownCommand(c *command) *cobra.Command {
	f := &ClientFlags{}
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the cores and exit the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.Shutdown(cmd.Context(), *f)
		},
	}
	addClientFlags(cmd, f)
	return cmd
}

func createHistoryCommand(c *command, globalFlags *GlobalFlags) *cobra.Command {
	f := &HistoryFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded core lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			return c.History(cmd.Context(), *globalFlags, *f)
		},
	}
	cmd.Flags().StringVar(&f.DSN, "dsn", "", "history database (defaults to [history].dsn)")
	cmd.Flags().StringVar(&f.Unit, "unit", "", "only events of this unit (primary, auxiliary)")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum number of events")
	return cmd
}
