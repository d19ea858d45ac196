package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/psqlpack/psqlpack/internal/archive"
	"github.com/psqlpack/psqlpack/internal/blobstore"
	"github.com/psqlpack/psqlpack/internal/pipeline"
)

var (
	buildProjectPath string
	buildOutputPath  string
)

func init() {
	buildCmd.Flags().StringVar(&buildProjectPath, "project", "psqlpack.json", "path to the project manifest")
	buildCmd.Flags().StringVar(&buildOutputPath, "out", "package.psqlpack", "path to write the built package archive")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile a project's SQL sources into a package archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		baseDir, err := filepath.Abs(filepath.Dir(buildProjectPath))
		if err != nil {
			return err
		}
		manifestName := filepath.Base(buildProjectPath)

		store, err := blobstore.Open(ctx, "file://"+filepath.ToSlash(baseDir))
		if err != nil {
			return err
		}
		defer store.Close()

		_, pkg, err := pipeline.BuildPackage(ctx, store, baseDir, manifestName)
		if err != nil {
			return err
		}

		data, err := archive.Encode(pkg)
		if err != nil {
			return err
		}

		if err := os.WriteFile(buildOutputPath, data, 0o644); err != nil {
			return err
		}

		cmd.Printf("built %s (hash %s)\n", buildOutputPath, pkg.Hash())
		return nil
	},
}
