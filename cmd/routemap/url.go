package main

import (
	"os"

	"github.com/spf13/cobra"

	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/output"
	"routemap/internal/paths"
	"routemap/internal/urls"
)

var (
	urlRelative bool
)

var urlCmd = &cobra.Command{
	Use:   "url [query]",
	Short: "Print composed URLs for endpoints",
	Long: `Scans the index, keeps endpoints matching the query and prints each one's
URL built from its module's application config and .routemap/deploy.toml.

Examples:
  routemap url                        # Every endpoint
  routemap url /orders                # Full URLs of matching endpoints
  routemap url OrderController --relative`,
	Args: cobra.MaximumNArgs(1),
	RunE: runURL,
}

func init() {
	urlCmd.Flags().BoolVar(&urlRelative, "relative", false, "Print the context path plus route instead of the full URL")
	addScopeFlags(urlCmd)
	rootCmd.AddCommand(urlCmd)
}

func runURL(cmd *cobra.Command, args []string) error {
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
		return errors.New(errors.ConfigUnresolved, "Cannot read deploy overrides", err, nil)
	}

	adapter := e.newAdapter()
	defer adapter.Close()

	scope := scopeFromFlags()
	result, err := scanOnce(ctx, e, adapter, scope)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		result = result.Filter(args[0])
	}

	resolver := urls.NewResolver(adapter, urls.ResolverOptions{
		Overrides: overrides,
		Defaults: endpoint.DeployConfig{
			Protocol: e.cfg.Deploy.Protocol,
			Host:     e.cfg.Deploy.Host,
			Port:     e.cfg.Deploy.Port,
		},
		Scope:       scope,
		Concurrency: e.cfg.Deploy.LookupConcurrency,
		Logger:      e.logger,
	})

	eps := result.Endpoints()
	seen := make(map[string]bool)
	var mods []urls.Module
	for _, ep := range eps {
		m := urls.ModuleOf(ep)
		if !seen[m.ID] {
			seen[m.ID] = true
			mods = append(mods, m)
		}
	}
	configs := resolver.LookupAll(ctx, mods)

	action := urls.CopyFullURL
	if urlRelative {
		action = urls.CopyRelativePath
	}
	entries := make([]output.URLEntry, 0, len(eps))
	for _, ep := range eps {
		entries = append(entries, output.NewURLEntry(ep, urls.Compose(action, ep, configs[ep.ModuleID])))
	}
	return output.WriteURLs(os.Stdout, format, entries)
}
