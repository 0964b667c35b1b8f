package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"routemap/internal/endpoint"
	"routemap/internal/output"
	"routemap/internal/paths"
	"routemap/internal/storage"
	"routemap/internal/urls"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List indexed modules and their deploy settings",
	Long: `Lists the modules recorded in the declaration index with the base URL
each one resolves to. Module IDs are what 'scan --module' expects.

Examples:
  routemap modules
  routemap modules --profile prod
  routemap modules --format json`,
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().StringSliceVar(&scanProfiles, "profile", nil, "Deployment profiles to apply (default: deploy.activeProfiles)")
	rootCmd.AddCommand(modulesCmd)
}

// ModuleInfoCLI is one row of the modules listing.
type ModuleInfoCLI struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	RootPath string                `json:"rootPath"`
	Manifest string                `json:"manifest,omitempty"`
	Deploy   endpoint.DeployConfig `json:"deploy"`
	BaseURL  string                `json:"baseUrl"`
}

func runModules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}

	overrides, err := urls.LoadOverrides(paths.OverridesPath(e.repoRoot))
	if err != nil {
		return err
	}

	adapter := e.newAdapter()
	defer adapter.Close()

	stored, err := adapter.Modules(ctx)
	if err != nil {
		return err
	}

	resolver := urls.NewResolver(adapter, urls.ResolverOptions{
		Overrides: overrides,
		Defaults: endpoint.DeployConfig{
			Protocol: e.cfg.Deploy.Protocol,
			Host:     e.cfg.Deploy.Host,
			Port:     e.cfg.Deploy.Port,
		},
		Scope:       endpoint.Scope{Profiles: scanProfiles},
		Concurrency: e.cfg.Deploy.LookupConcurrency,
		Logger:      e.logger,
	})

	mods := make([]urls.Module, len(stored))
	for i, m := range stored {
		mods[i] = urls.Module{ID: m.ModuleID, Name: m.Name}
	}
	configs := resolver.LookupAll(ctx, mods)

	infos := make([]ModuleInfoCLI, len(stored))
	for i, m := range stored {
		infos[i] = moduleInfo(m, configs[m.ModuleID])
	}

	if format == output.FormatTree {
		fmt.Print(formatModulesHuman(infos))
		return nil
	}
	data, err := output.EncodeJSON(infos)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func moduleInfo(m *storage.Module, cfg endpoint.DeployConfig) ModuleInfoCLI {
	info := ModuleInfoCLI{
		ID:       m.ModuleID,
		Name:     m.Name,
		RootPath: m.RootPath,
		Deploy:   cfg,
		// Composing the root route yields the module's base URL.
		BaseURL: strings.TrimSuffix(urls.ComposeFullURL(endpoint.Endpoint{Path: "/"}, cfg), "/"),
	}
	if m.ManifestType != nil {
		info.Manifest = *m.ManifestType
	}
	return info
}

func formatModulesHuman(infos []ModuleInfoCLI) string {
	if len(infos) == 0 {
		return "No modules indexed.\n"
	}
	idWidth, nameWidth := 0, 0
	for _, m := range infos {
		idWidth = max(idWidth, len(m.ID))
		nameWidth = max(nameWidth, len(m.Name))
	}

	var b strings.Builder
	for _, m := range infos {
		fmt.Fprintf(&b, "%-*s  %s  %s  %s\n",
			idWidth, m.ID,
			output.GroupStyle.Render(m.Name)+strings.Repeat(" ", nameWidth-len(m.Name)),
			m.BaseURL,
			output.MutedStyle.Render(m.RootPath),
		)
	}
	return b.String()
}
