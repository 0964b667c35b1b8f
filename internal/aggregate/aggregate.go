// Package aggregate resolves raw declarations and groups the resulting
// endpoints by module into a ScanResult.
package aggregate

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"routemap/internal/endpoint"
	"routemap/internal/slogutil"
)

// Aggregator runs the endpoint resolver over a declaration set.
type Aggregator struct {
	resolver *endpoint.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Aggregator. A nil logger discards output.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Aggregator{
		resolver: endpoint.NewResolver(),
		logger:   logger.With(slogutil.ComponentKey, "aggregate"),
		now:      time.Now,
	}
}

// Aggregate builds a fresh ScanResult. Modules appear in the order their
// first endpoint is discovered and endpoints keep discovery order.
// Malformed and duplicate declarations are counted in Skipped. An empty
// input yields an empty result.
func (a *Aggregator) Aggregate(decls []endpoint.Declaration) *endpoint.ScanResult {
	result := &endpoint.ScanResult{
		ID:     uuid.New().String(),
		Groups: []*endpoint.ModuleGroup{},
	}
	byModule := make(map[string]*endpoint.ModuleGroup)
	seen := newSeenSet(len(decls))

	for _, d := range decls {
		eps, err := a.resolver.ResolveAll(d)
		if err != nil {
			result.Skipped++
			a.logger.Debug("Skipping declaration", "file", d.File, "line", d.Line, "error", err.Error())
			continue
		}
		for _, ep := range eps {
			if !seen.add(ep.Key()) {
				result.Skipped++
				continue
			}
			g, ok := byModule[ep.ModuleID]
			if !ok {
				g = &endpoint.ModuleGroup{ModuleID: ep.ModuleID, Name: ep.ModuleName}
				byModule[ep.ModuleID] = g
				result.Groups = append(result.Groups, g)
			}
			g.Endpoints = append(g.Endpoints, ep)
		}
	}

	result.Recount()
	result.CompletedAt = a.now()
	a.logger.Debug("Aggregated declarations",
		"declarations", len(decls),
		"endpoints", result.TotalCount,
		"modules", len(result.Groups),
		"skipped", result.Skipped,
	)
	return result
}
