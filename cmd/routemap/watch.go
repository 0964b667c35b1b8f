package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"routemap/internal/endpoint"
	"routemap/internal/index"
	"routemap/internal/output"
	"routemap/internal/scan"
	"routemap/internal/watcher"
)

var (
	watchReindex    bool
	watchShowSource bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the endpoint list current while sources change",
	Long: `Scans once, then polls the repository and re-renders the endpoint list
whenever it changes. While the index is being rebuilt the scan waits and
resumes as soon as the index is ready again.

With --reindex, source changes trigger an index rebuild first.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchReindex, "reindex", false, "Rebuild the index when sources change")
	watchCmd.Flags().BoolVar(&watchShowSource, "show-source", false, "Show the source location of each handler")
	addScopeFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}

	adapter := e.newAdapter()
	defer adapter.Close()

	o := scan.New(adapter, scan.Options{
		Scope:  scopeFromFlags(),
		Logger: e.logger,
		Notifier: func(err error) {
			fmt.Fprintln(os.Stderr, output.WarningStyle.Render("Project is not indexed yet. Waiting for 'routemap index'..."))
		},
	})
	defer o.Close()

	var last *endpoint.ScanResult
	unsubscribe := o.Subscribe(func(r *endpoint.ScanResult) {
		if last != nil && output.SameEndpoints(last, r) {
			return
		}
		header := r.CompletedAt.Local().Format(time.TimeOnly)
		if last != nil {
			if summary := output.DiffSnapshots(last, r).Summary(); summary != "" {
				header += ", " + summary
			}
		}
		last = r
		fmt.Println(output.MutedStyle.Render("-- " + header + " --"))
		if err := output.Write(os.Stdout, format, r, output.Options{ShowSource: watchShowSource}); err != nil {
			e.logger.Error("Failed to render endpoints", "error", err.Error())
		}
	})
	defer unsubscribe()

	reindex := make(chan struct{}, 1)
	w := watcher.New(e.repoRoot, watcher.ConfigFrom(e.cfg), e.logger, func(events []watcher.Event) {
		for _, ev := range events {
			e.logger.Debug("Repository change", "event", ev.Type.String())
			switch ev.Type {
			case watcher.EventSourcesChanged:
				if watchReindex {
					select {
					case reindex <- struct{}{}:
					default:
					}
				} else {
					o.RequestRescan()
				}
			case watcher.EventIndexReady:
				o.IndexReady()
			}
		}
	})
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	o.RequestRescan()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Stopping.")
			return nil
		case <-reindex:
			rebuild(ctx, e, o)
		}
	}
}

// rebuild runs an index build and rescans once it completes.
func rebuild(ctx context.Context, e *env, o *scan.Orchestrator) {
	meta, err := index.NewBuilder(e.repoRoot, e.cfg, e.logger).Build(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("Index rebuild failed", "error", err.Error())
		}
		return
	}
	e.logger.Info("Index rebuilt", "declarations", meta.DeclarationCount)
	o.RequestRescan()
}
