package output

import (
	"fmt"
	"slices"

	"routemap/internal/endpoint"
)

// endpointKey identifies an endpoint across passes. The source location is
// left out so moving a handler within its file is not reported as a change.
func endpointKey(ep endpoint.Endpoint) string {
	return ep.ModuleID + "\x00" + ep.MethodLabel() + "\x00" + ep.Path + "\x00" + ep.Handler
}

// SnapshotDiff lists endpoints that appeared or disappeared between two
// snapshots, each in the discovery order of the snapshot it came from.
type SnapshotDiff struct {
	Added   []endpoint.Endpoint
	Removed []endpoint.Endpoint
}

// Empty reports whether nothing was added or removed.
func (d SnapshotDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Summary renders "+2 -1 endpoints", or "" for an empty diff.
func (d SnapshotDiff) Summary() string {
	if d.Empty() {
		return ""
	}
	return fmt.Sprintf("+%d -%d endpoints", len(d.Added), len(d.Removed))
}

// DiffSnapshots compares the endpoint sets of two snapshots. A nil
// snapshot has no endpoints.
func DiffSnapshots(prev, next *endpoint.ScanResult) SnapshotDiff {
	before := endpointsOf(prev)
	after := endpointsOf(next)

	seen := make(map[string]int, len(before))
	for _, ep := range before {
		seen[endpointKey(ep)]++
	}
	var d SnapshotDiff
	for _, ep := range after {
		k := endpointKey(ep)
		if seen[k] > 0 {
			seen[k]--
			continue
		}
		d.Added = append(d.Added, ep)
	}
	for _, ep := range before {
		if k := endpointKey(ep); seen[k] > 0 {
			seen[k]--
			d.Removed = append(d.Removed, ep)
		}
	}
	return d
}

func endpointsOf(r *endpoint.ScanResult) []endpoint.Endpoint {
	if r == nil {
		return nil
	}
	return r.Endpoints()
}

// SameEndpoints reports whether two snapshots would render identically:
// same groups, same endpoints, same order. Snapshot id and completion time
// are ignored.
func SameEndpoints(a, b *endpoint.ScanResult) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.EqualFunc(a.Groups, b.Groups, func(x, y *endpoint.ModuleGroup) bool {
		return x.ModuleID == y.ModuleID && x.Name == y.Name &&
			slices.EqualFunc(x.Endpoints, y.Endpoints, func(p, q endpoint.Endpoint) bool {
				return endpointKey(p) == endpointKey(q) && p.ModuleName == q.ModuleName && p.SourceRef == q.SourceRef
			})
	})
}
