package main

import (
	"fmt"
	"sort"

	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/storage"

	"github.com/spf13/cobra"
)

var migrateFlags struct {
	status bool
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply every schema migration that has not run yet against the configured
database. With --status, list the migrations and whether each is applied.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateFlags.status, "status", false, "show migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg, !migrateFlags.status)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	defer db.Close()

	applied, err := storage.AppliedVersions(ctx, db)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}

	f, err := formatter()
	if err != nil {
		return err
	}

	migrations := append([]storage.Migration(nil), storage.Migrations...)
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	t := cli.Table{Headers: []string{"version", "name", "applied"}}
	for _, m := range migrations {
		t.AddRow(fmt.Sprint(m.Version), m.Name, fmt.Sprint(applied[m.Version]))
	}
	return f.FormatTo(cmd.OutOrStdout(), t)
}
