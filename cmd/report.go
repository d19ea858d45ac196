package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	reportProjectPath string
	reportPackagePath string
	reportTargetPath  string
	reportProfilePath string
	reportConnString  string
)

func init() {
	reportCmd.Flags().StringVar(&reportProjectPath, "project", "", "path to the project manifest (mutually exclusive with --package)")
	reportCmd.Flags().StringVar(&reportPackagePath, "package", "", "path to a built package archive (mutually exclusive with --project)")
	reportCmd.Flags().StringVar(&reportTargetPath, "target-package", "", "path to a package archive to diff against, instead of introspecting the live database")
	reportCmd.Flags().StringVar(&reportProfilePath, "profile", "", "path to a publish profile (defaults to spec §6 defaults if omitted)")
	reportCmd.Flags().StringVar(&reportConnString, "conn", "", "PostgreSQL connection string for the target server")
	_ = reportCmd.MarkFlagRequired("conn")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a human-readable summary of what publish would change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		source, err := loadSourcePackage(ctx, reportProjectPath, reportPackagePath)
		if err != nil {
			return err
		}

		sess, target, caps, err := openTarget(ctx, reportConnString, reportTargetPath)
		if err != nil {
			return err
		}
		defer sess.Close()

		d, err := computeDelta(ctx, source, target, reportProfilePath, caps)
		if err != nil {
			return err
		}

		if d.IsEmpty() {
			cmd.Println(color.GreenString("no changes: target already matches source"))
			return nil
		}

		creates, drops, alters := color.New(color.FgGreen), color.New(color.FgRed), color.New(color.FgYellow)
		for gi, g := range d.Groups {
			label := fmt.Sprintf("group %d", gi+1)
			if !g.Transactional {
				label += " (non-transactional)"
			}
			cmd.Println(label + ":")
			for _, step := range g.Steps {
				line := fmt.Sprintf("  [%s] %s.%s", step.Kind, step.Schema, step.Name)
				switch {
				case isCreateKind(step.Kind):
					cmd.Println(creates.Sprint(line))
				case isDropKind(step.Kind):
					cmd.Println(drops.Sprint(line))
				default:
					cmd.Println(alters.Sprint(line))
				}
			}
		}
		cmd.Printf("%d statement(s) across %d group(s)\n", len(d.AllSteps()), len(d.Groups))
		return nil
	},
}
