// Package declindex is the boundary between the scan engine and the
// declaration index: bulk candidate queries, readiness and per-module
// deploy configuration.
package declindex

import (
	"context"

	"routemap/internal/endpoint"
)

// Adapter is what the scan orchestrator needs from an index.
type Adapter interface {
	// QueryCandidates returns every declaration in scope, in index order.
	// An index that cannot answer yet reports an INDEX_UNAVAILABLE error.
	QueryCandidates(ctx context.Context, scope endpoint.Scope) ([]endpoint.Declaration, error)

	// IsIndexReady reports whether QueryCandidates can be served now.
	IsIndexReady(ctx context.Context) bool

	// ModuleConfig returns what is known about how a module is deployed.
	// Any field may be unresolved.
	ModuleConfig(ctx context.Context, moduleID string, scope endpoint.Scope) (endpoint.DeployConfig, error)
}

// ReadyWatcher is implemented by adapters that can tell when a
// not-ready index becomes ready.
type ReadyWatcher interface {
	// OnIndexReady calls fn once, the next time the index turns ready.
	// cancel disarms the hook; it is safe to call more than once.
	OnIndexReady(fn func()) (cancel func())
}
