/*
Package cli provides helpers shared by the depot commands.

Output Formatting:

Commands accept --output text|json|csv. Tabular results are built as a
Table and handed to the formatter for the chosen format:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	t := cli.Table{Headers: []string{"code", "severity"}}
	t.AddRow("P0301", "critical")
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), t)

Text output aligns columns, JSON output renders a table as an array of
objects keyed by header, and CSV output is only defined for tables.

Signal Handling:

Long-running commands derive their context from SignalContext so that
SIGINT and SIGTERM trigger a graceful shutdown:

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

Errors:

ConfigError marks failures to load or validate configuration. ExitCode
maps it to exit status 2; every other error exits with 1.
*/
package cli
