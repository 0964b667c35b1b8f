package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"routemap/internal/endpoint"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestFixture -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// EndpointLines renders one sorted line per endpoint:
// "<module> <methods> <path> <handler>".
func EndpointLines(r *endpoint.ScanResult) []string {
	var lines []string
	for _, ep := range r.Endpoints() {
		lines = append(lines, fmt.Sprintf("%s %s %s %s", ep.ModuleName, ep.MethodLabel(), ep.Path, ep.Handler))
	}
	sort.Strings(lines)
	return lines
}

// CompareGolden compares lines against the golden file, failing with a
// diff on mismatch. With -update the golden file is rewritten instead.
func CompareGolden(t *testing.T, fixture *Fixture, name string, lines []string) {
	t.Helper()

	got := []byte(strings.Join(lines, "\n") + "\n")
	goldenPath := fixture.GoldenPath(name)

	if *updateGolden {
		if err := os.MkdirAll(fixture.GoldenDir, 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(got), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	expected = bytes.ReplaceAll(expected, []byte("\r\n"), []byte("\n"))
	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, lineDiff(string(expected), string(got), goldenPath), t.Name())
	}
}

// lineDiff lists lines missing from or added to the expected text.
func lineDiff(expected, got, path string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	want := make(map[string]int)
	for _, l := range strings.Split(strings.TrimSpace(expected), "\n") {
		want[l]++
	}
	have := make(map[string]int)
	for _, l := range strings.Split(strings.TrimSpace(got), "\n") {
		have[l]++
	}
	for _, l := range strings.Split(strings.TrimSpace(expected), "\n") {
		if have[l] < want[l] {
			fmt.Fprintf(&buf, "-%s\n", l)
		}
	}
	for _, l := range strings.Split(strings.TrimSpace(got), "\n") {
		if want[l] < have[l] {
			fmt.Fprintf(&buf, "+%s\n", l)
		}
	}
	return buf.String()
}
