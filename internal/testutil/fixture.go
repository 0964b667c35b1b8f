// Package testutil provides sample projects and golden files for tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Fixture is a sample project under testdata/fixtures.
type Fixture struct {
	// Name is the fixture directory name, e.g. "spring-shop"
	Name string

	// Root is the absolute path to the pristine fixture directory
	Root string

	// GoldenDir holds expected outputs under testdata/golden/<name>
	GoldenDir string
}

// LoadFixture locates a fixture, failing the test if it does not exist.
func LoadFixture(t *testing.T, name string) *Fixture {
	t.Helper()

	root := projectRoot(t)
	dir := filepath.Join(root, "testdata", "fixtures", name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", dir)
	}

	return &Fixture{
		Name:      name,
		Root:      dir,
		GoldenDir: filepath.Join(root, "testdata", "golden", name),
	}
}

// CopyToTemp copies the fixture into a fresh temp directory and returns it.
// Tests index the copy so nothing is written under testdata.
func (f *Fixture) CopyToTemp(t *testing.T) string {
	t.Helper()

	dst := t.TempDir()
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", f.Name, err)
	}
	return dst
}

// GoldenPath returns the path of a golden file. The name should not
// include the .txt extension.
func (f *Fixture) GoldenPath(name string) string {
	return filepath.Join(f.GoldenDir, name+".txt")
}

// projectRoot returns the module root, derived from this file's location.
func projectRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}
	// internal/testutil/fixture.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}
