package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"routemap/internal/declindex"
	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/output"
	"routemap/internal/scan"
)

var (
	scanFilter     string
	scanShowSource bool
	scanProfiles   []string
	scanModules    []string
	scanPaths      []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List HTTP endpoints grouped by module",
	Long: `Runs one discovery pass over the declaration index and prints every
endpoint, grouped by the module that owns it.

Examples:
  routemap scan
  routemap scan --filter orders
  routemap scan --module rm:mod:1a2b3c4d5e6f --format json
  routemap scan --path services/billing --show-source`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFilter, "filter", "", "Only show endpoints whose path, method or handler contains this text")
	scanCmd.Flags().BoolVar(&scanShowSource, "show-source", false, "Show the source location of each handler")
	addScopeFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}

// addScopeFlags registers the flags that narrow a scan.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&scanProfiles, "profile", nil, "Deployment profiles to apply (default: deploy.activeProfiles)")
	cmd.Flags().StringSliceVar(&scanModules, "module", nil, "Restrict to these module IDs")
	cmd.Flags().StringSliceVar(&scanPaths, "path", nil, "Restrict to sources under these repo-relative directories")
}

func scopeFromFlags() endpoint.Scope {
	return endpoint.Scope{Modules: scanModules, Paths: scanPaths, Profiles: scanProfiles}
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}

	adapter := e.newAdapter()
	defer adapter.Close()

	result, err := scanOnce(cmd.Context(), e, adapter, scopeFromFlags())
	if err != nil {
		return err
	}
	if scanFilter != "" {
		result = result.Filter(scanFilter)
	}
	return output.Write(os.Stdout, format, result, output.Options{ShowSource: scanShowSource})
}

func (e *env) newAdapter() *declindex.StoreAdapter {
	return declindex.NewStoreAdapter(e.repoRoot, declindex.StoreOptions{
		ActiveProfiles: e.cfg.Deploy.ActiveProfiles,
		Logger:         e.logger,
	})
}

// scanOnce runs a single pass and returns its snapshot. An unready index
// is reported as an error rather than waited on.
func scanOnce(ctx context.Context, e *env, adapter declindex.Adapter, scope endpoint.Scope) (*endpoint.ScanResult, error) {
	o := scan.New(adapter, scan.Options{Scope: scope, Logger: e.logger})
	defer o.Close()

	o.RequestRescan()
	if err := o.Wait(ctx); err != nil {
		return nil, err
	}

	if err := o.Err(); err != nil {
		if errors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, errors.New(errors.InternalError, "Scan failed", err, nil)
	}
	result := o.Current()
	if result == nil {
		return nil, errors.New(errors.InternalError, "Scan produced no result", nil, nil)
	}
	return result, nil
}
