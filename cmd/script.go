package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	scriptProjectPath string
	scriptPackagePath string
	scriptTargetPath  string
	scriptProfilePath string
	scriptConnString  string
)

func init() {
	scriptCmd.Flags().StringVar(&scriptProjectPath, "project", "", "path to the project manifest (mutually exclusive with --package)")
	scriptCmd.Flags().StringVar(&scriptPackagePath, "package", "", "path to a built package archive (mutually exclusive with --project)")
	scriptCmd.Flags().StringVar(&scriptTargetPath, "target-package", "", "path to a package archive to diff against, instead of introspecting the live database")
	scriptCmd.Flags().StringVar(&scriptProfilePath, "profile", "", "path to a publish profile (defaults to spec §6 defaults if omitted)")
	scriptCmd.Flags().StringVar(&scriptConnString, "conn", "", "PostgreSQL connection string for the target server")
	_ = scriptCmd.MarkFlagRequired("conn")
	rootCmd.AddCommand(scriptCmd)
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the SQL a publish would run, without executing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		source, err := loadSourcePackage(ctx, scriptProjectPath, scriptPackagePath)
		if err != nil {
			return err
		}

		sess, target, caps, err := openTarget(ctx, scriptConnString, scriptTargetPath)
		if err != nil {
			return err
		}
		defer sess.Close()

		d, err := computeDelta(ctx, source, target, scriptProfilePath, caps)
		if err != nil {
			return err
		}

		for gi, g := range d.Groups {
			if !g.Transactional {
				cmd.Printf("-- group %d (non-transactional)\n", gi+1)
			} else {
				cmd.Printf("-- group %d\nBEGIN;\n", gi+1)
			}
			for _, step := range g.Steps {
				cmd.Println(step.SQL)
			}
			if g.Transactional {
				cmd.Println("COMMIT;")
			}
		}
		return nil
	},
}
