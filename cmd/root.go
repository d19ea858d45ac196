package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/psqlpack/psqlpack/internal/perrors"
)

var rootCmd = &cobra.Command{
	Use:           "psqlpack",
	Short:         "psqlpack is a declarative schema management tool for PostgreSQL.",
	Long:          `psqlpack compiles SQL sources into a package, diffs it against a live database or another package, and publishes the resulting migration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code spec §6 assigns to the
// error the command returned, so scripting callers can branch on
// user/I-O/database failure without parsing text.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := perrors.ExitCode(err)
		if code == perrors.ExitSuccess {
			code = perrors.ExitUserError
		}
		printErr(err)
		os.Exit(code)
	}
}

func printErr(err error) {
	if err == nil {
		return
	}
	rootCmd.PrintErrln(err)
}
