package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"routemap/internal/endpoint"
)

func TestLoadFixture(t *testing.T) {
	f := LoadFixture(t, "spring-shop")
	if f.Name != "spring-shop" || !filepath.IsAbs(f.Root) {
		t.Errorf("fixture = %+v", f)
	}
	if _, err := os.Stat(f.GoldenPath("endpoints")); err != nil {
		t.Errorf("golden file: %v", err)
	}
}

func TestCopyToTemp(t *testing.T) {
	f := LoadFixture(t, "spring-shop")
	dir := f.CopyToTemp(t)

	for _, rel := range []string{
		"orders/pom.xml",
		"users/settings.gradle.kts",
		"inventory/src/main/java/com/shop/inventory/InventoryResource.java",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("%s not copied: %v", rel, err)
		}
	}
}

func TestEndpointLines(t *testing.T) {
	r := &endpoint.ScanResult{Groups: []*endpoint.ModuleGroup{{
		ModuleID: "m-users",
		Name:     "users",
		Endpoints: []endpoint.Endpoint{
			{Methods: []endpoint.HTTPMethod{endpoint.POST}, Path: "/users", ModuleName: "users", Handler: "U#create"},
			{Methods: []endpoint.HTTPMethod{endpoint.GET}, Path: "/users", ModuleName: "users", Handler: "U#list"},
		},
	}}}
	r.Recount()

	got := EndpointLines(r)
	want := []string{"users GET /users U#list", "users POST /users U#create"}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("EndpointLines = %q", got)
	}
}

func TestLineDiff(t *testing.T) {
	diff := lineDiff("a\nb\n", "b\nc\n", "x.txt")
	if !strings.Contains(diff, "-a\n") || !strings.Contains(diff, "+c\n") || strings.Contains(diff, "-b") {
		t.Errorf("diff:\n%s", diff)
	}
}
