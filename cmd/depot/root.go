package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"fleetworks/depot/pkg/app"
	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/logging"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "depot",
	Short: "Depot - fleet maintenance back office",
	Long: `Depot keeps track of a fleet: assets and their meters, work orders and
the parts they consume, inspections, custom forms, geofences, fuel,
documents and preventive maintenance schedules.

Run "depot run" to serve the HTTP API. The other commands work directly on
the configured database or on local files.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "depot.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads, overrides from the environment and validates the
// --config file, then publishes it as the global configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Initialize(cfgFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NewConfigError("", fmt.Sprintf("%s not found; pass --config", cfgFile))
		}
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.Install()
	return logger, nil
}

// openDatabase opens the configured database and applies migrations when
// database.auto_migrate is set or force is true.
func openDatabase(ctx context.Context, cfg *config.Config, force bool) (*sqlx.DB, error) {
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate || force {
		if err := storage.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	slog.Debug("database ready", "driver", cfg.Database.Driver)
	return db, nil
}

// withApp loads the configuration, opens the database and wires the
// services for a one-shot command. The app is closed after fn returns so
// queued audit entries reach the database.
func withApp(cmd *cobra.Command, name string, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	db, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer db.Close()

	a, err := app.New(ctx, cfg, db, app.Options{Version: Version})
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	runErr := fn(ctx, a)
	closeErr := a.Close(context.WithoutCancel(ctx))
	if runErr != nil {
		return cli.NewCommandError(name, runErr)
	}
	if closeErr != nil {
		return cli.NewCommandError(name, closeErr)
	}
	return nil
}

// formatter returns the formatter selected by --output.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}
