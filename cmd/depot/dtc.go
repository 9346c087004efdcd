package main

import (
	"errors"
	"fmt"
	"strings"

	"fleetworks/depot/pkg/cli"
	"fleetworks/depot/pkg/fleet/obd"

	"github.com/spf13/cobra"
)

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "OBD-II diagnostic trouble code tools",
}

var dtcDecodeFlags struct {
	mode03 bool
}

var dtcDecodeCmd = &cobra.Command{
	Use:   "decode <codes...>",
	Short: "Decode diagnostic trouble codes",
	Long: `Decode OBD-II trouble codes such as P0301 into their system, whether they
are generic (SAE) or manufacturer specific, and a description when known.

With --mode03 the arguments are the raw hex reply of an ELM327 adapter to a
mode 03 request instead.

Examples:
  depot dtc decode P0301 P0420,C0035
  depot dtc decode --mode03 "43 01 33 00 00 00 00"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDTCDecode,
}

func init() {
	dtcDecodeCmd.Flags().BoolVar(&dtcDecodeFlags.mode03, "mode03", false, "arguments are a raw mode 03 response")
	dtcCmd.AddCommand(dtcDecodeCmd)
	rootCmd.AddCommand(dtcCmd)
}

func runDTCDecode(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	var codes []obd.DTC
	if dtcDecodeFlags.mode03 {
		codes, err = obd.DecodeMode03(strings.Join(args, "\n"))
	} else {
		codes, err = obd.ParseDTCs(strings.Join(args, " "))
	}
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return errors.New("no trouble codes found")
	}

	t := cli.Table{Headers: []string{"code", "system", "generic", "subsystem", "description"}}
	for _, d := range codes {
		t.AddRow(d.Code, string(d.System), fmt.Sprint(d.Generic), d.Subsystem, d.Description)
	}
	return f.FormatTo(cmd.OutOrStdout(), t)
}
