package main

import (
	"context"
	"fmt"
	"log/slog"

	"fleetworks/depot/pkg/api"
	"fleetworks/depot/pkg/app"
	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the depot API server",
	Long: `Start the depot API server with the specified configuration.

The server exposes the REST API under /api/v1 together with /health, /ready,
/version and the metrics endpoint. When maintenance.enabled is set the
maintenance generator runs on its cron schedule in the same process. The
config file is watched and the log level and API keys follow edits without
a restart.

Examples:
  # Start with default config
  depot run

  # Start with custom config
  depot run --config /etc/depot/depot.yaml

  # Override listen address
  depot run --listen 0.0.0.0:8080

  # Validate config without starting server
  depot run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	fmt.Fprintf(out, "Depot v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	db, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer db.Close()
	fmt.Fprintf(out, "✓ Database ready (%s)\n", cfg.Database.Driver)

	a, err := app.New(ctx, cfg, db, app.Options{Version: Version})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Error("shutdown cleanup failed", "error", err)
		}
	}()

	slog.Debug("health checks registered", "checks", a.Health.ListChecks())

	srv := server.New(cfg, api.NewRouter(a.APIDeps()), a.Health, a.Metrics, server.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	if a.Scheduler != nil {
		g.Go(func() error {
			return a.Scheduler.Run(gctx)
		})
	}

	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			g.Go(func() error {
				return watcher.Watch(gctx, func(next *config.Config) {
					if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
						slog.Warn("ignoring invalid log level", "level", next.Telemetry.Logging.Level, "error", err)
					}
					a.Reload(next)
				})
			})
		}
	}

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ API: http://%s%s\n", cfg.Server.ListenAddress, api.BasePath)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
