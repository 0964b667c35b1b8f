package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"routemap/internal/config"
	"routemap/internal/repostate"
	"routemap/internal/slogutil"
	"routemap/internal/version"
)

var (
	repoFlag    string
	verboseFlag int
	quietFlag   bool
	formatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "routemap",
	Short: "routemap - HTTP endpoint map for Spring and JAX-RS sources",
	Long: `routemap indexes Java and Kotlin sources, finds Spring MVC, WebFlux and
JAX-RS request handlers, groups them by module and rebuilds their URLs from
each module's application config.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggerFactory != nil {
			_ = loggerFactory.Close()
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("routemap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: git top level or current directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "tree", "Output format (tree, json, yaml)")
}

var loggerFactory *slogutil.LoggerFactory

// env is what every command needs: the repository, its config and a logger.
type env struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
}

// newEnv resolves the repository root and loads its config. A broken
// config file falls back to defaults with a warning.
func newEnv(ctx context.Context) (*env, error) {
	repoRoot, err := resolveRepoRoot(ctx)
	if err != nil {
		return nil, err
	}

	cfg, cfgErr := config.LoadConfig(repoRoot)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	var cliLevel *slog.Level
	if verboseFlag > 0 || quietFlag {
		level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
		cliLevel = &level
	}
	loggerFactory = slogutil.NewLoggerFactory(repoRoot, cfg.Logging, cliLevel)
	logger := loggerFactory.Logger()

	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", "error", cfgErr.Error())
	}
	return &env{repoRoot: repoRoot, cfg: cfg, logger: logger}, nil
}

func resolveRepoRoot(ctx context.Context) (string, error) {
	start := repoFlag
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		start = cwd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("repository root %s is not a directory", abs)
	}
	if repoFlag == "" {
		if top, err := repostate.GetRepoRoot(ctx, abs); err == nil {
			return top, nil
		}
	}
	return abs, nil
}
