package endpoint

import (
	"strconv"
	"time"
)

// ModuleGroup is an ordered bucket of endpoints sharing a module ID.
type ModuleGroup struct {
	ModuleID  string     `json:"moduleId" yaml:"moduleId"`
	Name      string     `json:"name" yaml:"name"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Count is always derived from the endpoint slice.
func (g *ModuleGroup) Count() int {
	return len(g.Endpoints)
}

// DisplayName renders the tree label, e.g. "[3]orders-service".
func (g *ModuleGroup) DisplayName() string {
	return "[" + strconv.Itoa(g.Count()) + "]" + g.Name
}

// ScanResult is one immutable snapshot produced by a scan pass.
type ScanResult struct {
	ID          string         `json:"id" yaml:"id"`
	CompletedAt time.Time      `json:"completedAt" yaml:"completedAt"`
	Groups      []*ModuleGroup `json:"groups" yaml:"groups"`
	TotalCount  int            `json:"totalCount" yaml:"totalCount"`
	// Skipped counts declarations that produced no endpoint because they
	// were malformed or duplicated.
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Recount recomputes TotalCount from the groups.
func (r *ScanResult) Recount() {
	total := 0
	for _, g := range r.Groups {
		total += g.Count()
	}
	r.TotalCount = total
}

// Endpoints flattens the snapshot in group order.
func (r *ScanResult) Endpoints() []Endpoint {
	if r == nil {
		return nil
	}
	out := make([]Endpoint, 0, r.TotalCount)
	for _, g := range r.Groups {
		out = append(out, g.Endpoints...)
	}
	return out
}

// Group returns the group for a module ID.
func (r *ScanResult) Group(moduleID string) (*ModuleGroup, bool) {
	if r == nil {
		return nil, false
	}
	for _, g := range r.Groups {
		if g.ModuleID == moduleID {
			return g, true
		}
	}
	return nil, false
}

// Filter returns a new snapshot holding only endpoints that match query.
// Groups left empty are dropped; order is preserved.
func (r *ScanResult) Filter(query string) *ScanResult {
	if r == nil {
		return nil
	}
	out := &ScanResult{
		ID:          r.ID,
		CompletedAt: r.CompletedAt,
		Skipped:     r.Skipped,
	}
	for _, g := range r.Groups {
		var kept []Endpoint
		for _, ep := range g.Endpoints {
			if ep.Matches(query) {
				kept = append(kept, ep)
			}
		}
		if len(kept) > 0 {
			out.Groups = append(out.Groups, &ModuleGroup{ModuleID: g.ModuleID, Name: g.Name, Endpoints: kept})
		}
	}
	out.Recount()
	return out
}
