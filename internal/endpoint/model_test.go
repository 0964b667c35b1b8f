package endpoint

import (
	"reflect"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want HTTPMethod
		ok   bool
	}{
		{"GET", GET, true},
		{"post", POST, true},
		{"RequestMethod.DELETE", DELETE, true},
		{"org.springframework.web.bind.annotation.RequestMethod.PATCH", PATCH, true},
		{"FETCH", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMethod(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseMethod(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestSortMethods(t *testing.T) {
	got := SortMethods([]HTTPMethod{DELETE, GET, POST, GET})
	want := []HTTPMethod{GET, POST, DELETE}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortMethods = %v, want %v", got, want)
	}
	if SortMethods(nil) != nil {
		t.Error("SortMethods(nil) should be nil")
	}
}

func TestSourceRef_Location(t *testing.T) {
	ref := NewSourceRef("svc/src/Api.java", 42, "Api", "list")
	file, line, ok := ref.Location()
	if !ok || file != "svc/src/Api.java" || line != 42 {
		t.Errorf("Location = %q, %d, %v", file, line, ok)
	}

	if _, _, ok := SourceRef("opaque-handle").Location(); ok {
		t.Error("foreign token should not split")
	}
}

func TestEndpoint_MethodLabelAndMatches(t *testing.T) {
	ep := Endpoint{Path: "/users/{id}", ModuleName: "accounts", Handler: "UserController#get"}
	if ep.MethodLabel() != "ANY" {
		t.Errorf("MethodLabel = %q, want ANY", ep.MethodLabel())
	}
	ep.Methods = []HTTPMethod{GET, PUT}
	if ep.MethodLabel() != "GET|PUT" {
		t.Errorf("MethodLabel = %q", ep.MethodLabel())
	}

	for _, q := range []string{"", "users", "ACCOUNTS", "usercontroller", "put"} {
		if !ep.Matches(q) {
			t.Errorf("Matches(%q) = false", q)
		}
	}
	if ep.Matches("orders") {
		t.Error("Matches(orders) = true")
	}
}

func sampleResult() *ScanResult {
	r := &ScanResult{
		ID: "scan-1",
		Groups: []*ModuleGroup{
			{ModuleID: "m1", Name: "orders", Endpoints: []Endpoint{
				{Path: "/orders", ModuleID: "m1", Handler: "OrderController#list"},
				{Path: "/orders/{id}", ModuleID: "m1", Handler: "OrderController#get"},
			}},
			{ModuleID: "m2", Name: "users", Endpoints: []Endpoint{
				{Path: "/users", ModuleID: "m2", Handler: "UserController#list"},
			}},
		},
	}
	r.Recount()
	return r
}

func TestScanResult_Counts(t *testing.T) {
	r := sampleResult()
	if r.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", r.TotalCount)
	}
	if got := r.Groups[0].DisplayName(); got != "[2]orders" {
		t.Errorf("DisplayName = %q", got)
	}
	if len(r.Endpoints()) != 3 {
		t.Errorf("Endpoints() len = %d", len(r.Endpoints()))
	}
	if g, ok := r.Group("m2"); !ok || g.Name != "users" {
		t.Errorf("Group(m2) = %+v, %v", g, ok)
	}
}

func TestScanResult_Filter(t *testing.T) {
	r := sampleResult()

	f := r.Filter("{id}")
	if f.TotalCount != 1 || len(f.Groups) != 1 || f.Groups[0].DisplayName() != "[1]orders" {
		t.Errorf("Filter({id}) = %+v", f)
	}

	sum := 0
	for _, g := range f.Groups {
		sum += g.Count()
	}
	if sum != f.TotalCount {
		t.Errorf("TotalCount %d != sum %d", f.TotalCount, sum)
	}

	if r.TotalCount != 3 || len(r.Groups[0].Endpoints) != 2 {
		t.Error("Filter must not modify the source snapshot")
	}

	if empty := r.Filter("nothing-matches"); empty.TotalCount != 0 || len(empty.Groups) != 0 {
		t.Errorf("Filter(no match) = %+v", empty)
	}
}

func TestDeployConfig_Merge(t *testing.T) {
	c := DeployConfig{Port: 9000, ContextPath: UnresolvedMarker}
	got := c.Merge(DeployConfig{Protocol: "https", Port: 8443, ContextPath: "/api", Host: "svc"})
	want := DeployConfig{Protocol: "https", Port: 9000, ContextPath: "/api", Host: "svc"}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
	if !got.Resolved() {
		t.Error("merged config should be resolved")
	}
	if (DeployConfig{}).Resolved() {
		t.Error("zero config should be unresolved")
	}
}

func TestScope_Includes(t *testing.T) {
	d := Declaration{File: "orders/src/Api.java", ModuleID: "m1"}

	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{"project", Scope{}, true},
		{"module match", Scope{Modules: []string{"m1"}}, true},
		{"module mismatch", Scope{Modules: []string{"m2"}}, false},
		{"path match", Scope{Paths: []string{"orders"}}, true},
		{"path prefix only", Scope{Paths: []string{"ord"}}, false},
		{"path with slash", Scope{Paths: []string{"orders/src/"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Includes(d); got != tt.want {
				t.Errorf("Includes = %v, want %v", got, tt.want)
			}
		})
	}
	if !(Scope{}).IsProject() {
		t.Error("zero scope should be project scope")
	}
}
