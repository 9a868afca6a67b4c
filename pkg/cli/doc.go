/*
Package cli provides helpers shared by the aegis commands: output
formatters, the exit-code mapping, a progress bar for batch checks and
signal handling.

Output Formatting:

Results are written as text, JSON, YAML or (for audit records) CSV:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Exit Codes:

A blocked check ends the process with status 2 so scripts can gate on it:

	if result.Blocked {
		return &cli.ExitError{Code: cli.ExitBlocked}
	}

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
