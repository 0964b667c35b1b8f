//go:build cgo

package scan

import (
	"context"
	"sort"
	"testing"
	"time"

	"routemap/internal/config"
	"routemap/internal/declindex"
	"routemap/internal/endpoint"
	"routemap/internal/index"
	"routemap/internal/slogutil"
	"routemap/internal/testutil"
	"routemap/internal/urls"
)

// TestFixtureSpringShop indexes a sample multi-module project and checks
// the published endpoints and their composed URLs.
func TestFixtureSpringShop(t *testing.T) {
	fixture := testutil.LoadFixture(t, "spring-shop")
	root := fixture.CopyToTemp(t)
	logger := slogutil.NewDiscardLogger()

	ctx := context.Background()
	meta, err := index.NewBuilder(root, config.DefaultConfig(), logger).Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if meta.ModuleCount != 3 || meta.DetectionMethod != "manifest" {
		t.Errorf("meta = %+v", meta)
	}

	adapter := declindex.NewStoreAdapter(root, declindex.StoreOptions{Logger: logger})
	defer adapter.Close()

	o := New(adapter, Options{Logger: logger})
	defer o.Close()
	o.RequestRescan()

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := o.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	result := o.Current()
	if result == nil {
		t.Fatalf("no snapshot published, state %v, err %v", o.State(), o.Err())
	}
	testutil.CompareGolden(t, fixture, "endpoints", testutil.EndpointLines(result))

	resolver := urls.NewResolver(adapter, urls.ResolverOptions{Logger: logger})
	var got []string
	for _, ep := range result.Endpoints() {
		got = append(got, resolver.URL(ctx, urls.CopyFullURL, ep))
	}
	sort.Strings(got)
	testutil.CompareGolden(t, fixture, "urls", got)

	// Module groups follow discovery order and every group is non-empty.
	for _, g := range result.Groups {
		if g.Count() == 0 {
			t.Errorf("empty group %s", g.Name)
		}
	}
	if _, ok := result.Group(moduleIDOf(result, "orders")); !ok {
		t.Error("orders group missing")
	}
}

func moduleIDOf(r *endpoint.ScanResult, name string) string {
	for _, g := range r.Groups {
		if g.Name == name {
			return g.ModuleID
		}
	}
	return ""
}
