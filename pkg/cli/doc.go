/*
Package cli provides command-line helpers shared by the relay command.

Output Formatting:

Commands that print results accept --format text|json:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, report)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors:

ConfigError and CommandError carry the failing field or command. ExitCode
maps them to the process exit status.
*/
package cli
