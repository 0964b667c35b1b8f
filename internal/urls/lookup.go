package urls

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/slogutil"
)

// ConfigSource reads what a module declares about how it is served.
// Any field of the result may be unresolved.
type ConfigSource interface {
	ModuleConfig(ctx context.Context, moduleID string, scope endpoint.Scope) (endpoint.DeployConfig, error)
}

// Module identifies a module for a lookup.
type Module struct {
	ID   string
	Name string
}

// ModuleOf returns the module an endpoint belongs to.
func ModuleOf(ep endpoint.Endpoint) Module {
	return Module{ID: ep.ModuleID, Name: ep.ModuleName}
}

// Resolver computes deploy configs on demand. Nothing is cached: every
// lookup reads the source again, since module config can change between
// scans.
type Resolver struct {
	source    ConfigSource
	overrides *Overrides
	defaults  endpoint.DeployConfig
	scope     endpoint.Scope
	limit     int
	logger    *slog.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Overrides *Overrides
	// Defaults fill whatever neither the overrides nor the source resolve.
	Defaults endpoint.DeployConfig
	Scope    endpoint.Scope
	// Concurrency bounds LookupAll; values below 1 mean 4.
	Concurrency int
	Logger      *slog.Logger
}

// NewResolver creates a Resolver. source may be nil, in which case only
// overrides and defaults apply.
func NewResolver(source ConfigSource, opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 4
	}
	return &Resolver{
		source:    source,
		overrides: opts.Overrides,
		defaults:  opts.Defaults,
		scope:     opts.Scope,
		limit:     limit,
		logger:    logger.With(slogutil.ComponentKey, "urls"),
	}
}

// Lookup resolves a module's deploy config. It never fails: a source error
// is logged as CONFIG_UNRESOLVED and the result degrades to overrides and
// defaults.
func (r *Resolver) Lookup(ctx context.Context, m Module) endpoint.DeployConfig {
	cfg := r.overrides.For(m)

	if r.source != nil {
		discovered, err := r.source.ModuleConfig(ctx, m.ID, r.scope)
		if err != nil {
			err = errors.New(errors.ConfigUnresolved, "module config lookup failed", err, nil)
			r.logger.Warn("Using default deploy config", "module", m.Name, "error", err.Error())
		} else {
			cfg = cfg.Merge(discovered)
		}
	}

	cfg = cfg.Merge(r.overrides.Fallback()).Merge(r.defaults)
	if !cfg.Resolved() {
		r.logger.Debug("Deploy config partly unresolved", "module", m.Name,
			"protocol", cfg.Protocol, "port", cfg.Port)
	}
	return cfg
}

// LookupAll resolves several modules concurrently. The result is keyed by
// module ID.
func (r *Resolver) LookupAll(ctx context.Context, modules []Module) map[string]endpoint.DeployConfig {
	results := make([]endpoint.DeployConfig, len(modules))

	g := new(errgroup.Group)
	g.SetLimit(r.limit)
	for i, m := range modules {
		i, m := i, m
		g.Go(func() error {
			results[i] = r.Lookup(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]endpoint.DeployConfig, len(modules))
	for i, m := range modules {
		out[m.ID] = results[i]
	}
	return out
}

// URL looks up the endpoint's module and composes the text for action.
func (r *Resolver) URL(ctx context.Context, action Action, ep endpoint.Endpoint) string {
	return Compose(action, ep, r.Lookup(ctx, ModuleOf(ep)))
}
