package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"routemap/internal/extract"
	"routemap/internal/index"
	"routemap/internal/paths"
)

var (
	indexForce bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the declaration index",
	Long: `Detects modules, parses every Java and Kotlin source with tree-sitter and
stores annotated methods in .routemap/index.db.

The index reports not ready while a build holds .routemap/index.lock, so a
running 'routemap watch' blocks and resumes once the build completes.

Examples:
  routemap index            # Rebuild when sources changed
  routemap index --force    # Rebuild even if the index is current`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Rebuild even if the index is current")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	if !extract.IsAvailable() {
		return fmt.Errorf("this build has no source parser: %w", extract.ErrNoCGO)
	}

	if !indexForce {
		meta, err := index.LoadMeta(paths.RepoDir(e.repoRoot))
		if err != nil {
			e.logger.Warn("Could not load index metadata", "error", err.Error())
		}
		if meta != nil {
			freshness := meta.CheckFreshness(ctx, e.repoRoot, e.cfg.Scan.ExcludeDirs)
			if freshness.Fresh {
				fmt.Printf("Index is current (%d declarations in %d modules)\n", meta.DeclarationCount, meta.ModuleCount)
				fmt.Println("Nothing to do. Use --force to re-index.")
				return nil
			}
			fmt.Printf("Index is stale: %s\n", freshness.Reason)
		}
	}

	meta, err := index.NewBuilder(e.repoRoot, e.cfg, e.logger).Build(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d files in %s\n", meta.FileCount, meta.Duration)
	fmt.Printf("  Modules:      %d (%s)\n", meta.ModuleCount, meta.DetectionMethod)
	fmt.Printf("  Declarations: %d\n", meta.DeclarationCount)
	if meta.FailedFiles > 0 {
		fmt.Printf("  Failed files: %d (run with -v for details)\n", meta.FailedFiles)
	}
	return nil
}
