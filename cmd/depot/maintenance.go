package main

import (
	"context"
	"strings"

	"fleetworks/depot/pkg/app"
	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/storage"

	"github.com/spf13/cobra"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Preventive maintenance tasks",
}

var maintenanceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate work orders for due maintenance schedules",
	Long: `Check every active maintenance schedule once and open a work order for each
one that is due, the same pass the server runs on maintenance.schedule.
Schedules that already have an open generated work order are skipped.`,
	Args: cobra.NoArgs,
	RunE: runMaintenance,
}

func init() {
	maintenanceCmd.AddCommand(maintenanceRunCmd)
	rootCmd.AddCommand(maintenanceCmd)
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	return withApp(cmd, "maintenance run", func(ctx context.Context, a *app.App) error {
		generated, err := a.Maintenance.Run(ctx, storage.Now())
		if err != nil {
			return err
		}

		t := cli.Table{Headers: []string{"schedule_id", "work_order", "asset_id", "reasons"}}
		for _, g := range generated {
			var number, assetID string
			if g.WorkOrder != nil {
				number, assetID = g.WorkOrder.Number, g.WorkOrder.AssetID
			}
			t.AddRow(g.ScheduleID, number, assetID, strings.Join(g.Reasons, "; "))
		}
		return f.FormatTo(cmd.OutOrStdout(), t)
	})
}
