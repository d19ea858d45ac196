package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/publish"
)

var (
	publishProjectPath string
	publishPackagePath string
	publishTargetPath  string
	publishProfilePath string
	publishConnString  string
	publishVerbose     bool
)

func init() {
	publishCmd.Flags().StringVar(&publishProjectPath, "project", "", "path to the project manifest (mutually exclusive with --package)")
	publishCmd.Flags().StringVar(&publishPackagePath, "package", "", "path to a built package archive (mutually exclusive with --project)")
	publishCmd.Flags().StringVar(&publishTargetPath, "target-package", "", "path to a package archive to diff against, instead of introspecting the live database")
	publishCmd.Flags().StringVar(&publishProfilePath, "profile", "", "path to a publish profile (defaults to spec §6 defaults if omitted)")
	publishCmd.Flags().StringVar(&publishConnString, "conn", "", "PostgreSQL connection string for the target server")
	publishCmd.Flags().BoolVar(&publishVerbose, "verbose", false, "trace each statement as it runs")
	_ = publishCmd.MarkFlagRequired("conn")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Reconcile a target database with a package's schema (spec §4.7)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		source, err := loadSourcePackage(ctx, publishProjectPath, publishPackagePath)
		if err != nil {
			return err
		}

		sess, target, caps, err := openTarget(ctx, publishConnString, publishTargetPath)
		if err != nil {
			return err
		}
		defer sess.Close()

		d, err := computeDelta(ctx, source, target, publishProfilePath, caps)
		if err != nil {
			return err
		}

		if d.IsEmpty() {
			cmd.Println("nothing to publish: target already matches source")
			return nil
		}

		result, err := publish.Execute(ctx, sess, d, publish.Options{Verbose: publishVerbose})
		if err != nil {
			cmd.Printf("publish halted after %d group(s), %d statement(s): %v\n", result.GroupsCompleted, result.StepsApplied, err)
			return perrors.NewDatabaseErrorf("publish failed: %v", err)
		}

		cmd.Printf("published %d group(s), %d statement(s)\n", result.GroupsCompleted, result.StepsApplied)
		return nil
	},
}
