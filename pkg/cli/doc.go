/*
Package cli provides command-line helpers for the calcul command.

Output Formatting:

Command results are printed as text, JSON or a table:

	formatter := cli.NewFormatter(cli.FormatTable)
	if err := formatter.FormatTo(os.Stdout, results); err != nil {
		return err
	}

Text output uses the Text method of results implementing Texter; table output
requires results implementing Tabular.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr).WithLabel("Linting", "files")
	progress.Start(int64(len(files)))
	for i, file := range files {
		lint(file)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ExitCode maps command errors to process exit codes: ConfigError is a usage
error, anything else a failure.
*/
package cli
