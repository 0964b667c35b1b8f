package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"routemap/internal/config"
	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/modules"
	"routemap/internal/paths"
	"routemap/internal/urls"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize routemap configuration",
	Long: `Creates a .routemap/ directory with default configuration, an example
deploy.toml and, unless one exists, a MODULES.toml listing the detected modules.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}

	dir := paths.RepoDir(e.repoRoot)
	configPath := filepath.Join(dir, "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Already initialized is success.
		fmt.Println("routemap already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'routemap init --force' to reinitialize.")
		return nil
	}

	if _, err := paths.EnsureRepoDir(e.repoRoot); err != nil {
		return errors.New(errors.InternalError, "Failed to create .routemap directory", err, nil)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(e.repoRoot); err != nil {
		return errors.New(errors.InternalError, "Failed to write config file", err, nil)
	}
	e.logger.Info("Wrote config", "path", configPath)

	overridesPath := paths.OverridesPath(e.repoRoot)
	if _, statErr := os.Stat(overridesPath); os.IsNotExist(statErr) || initForce {
		overrides := &urls.Overrides{
			Defaults: endpoint.DeployConfig{Protocol: cfg.Deploy.Protocol, Host: cfg.Deploy.Host},
		}
		if err := urls.WriteOverrides(overridesPath, overrides); err != nil {
			return errors.New(errors.InternalError, "Failed to write deploy.toml", err, nil)
		}
	}

	modulesPath := filepath.Join(e.repoRoot, cfg.Modules.DeclarationFile)
	wroteModules := false
	if _, statErr := os.Stat(modulesPath); os.IsNotExist(statErr) {
		detected, err := modules.DetectModules(e.repoRoot, nil, cfg.Modules.Ignore, "", e.logger)
		if err != nil {
			e.logger.Warn("Module detection failed", "error", err.Error())
		}
		var found []*modules.Module
		if detected != nil && detected.DetectionMethod == "manifest" {
			found = detected.Modules
		}
		if err := modules.CreateExampleModulesFile(modulesPath, found); err != nil {
			return errors.New(errors.InternalError, "Failed to write "+cfg.Modules.DeclarationFile, err, nil)
		}
		wroteModules = true
	}

	fmt.Println("routemap initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Printf("Deploy overrides:         %s\n", overridesPath)
	if wroteModules {
		fmt.Printf("Module declarations:      %s\n", modulesPath)
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'routemap index' to build the declaration index")
	fmt.Println("  2. Run 'routemap scan' to list endpoints")
	return nil
}
