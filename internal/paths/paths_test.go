package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepoLayout(t *testing.T) {
	root := t.TempDir()

	if got, want := DatabasePath(root), filepath.Join(root, ".routemap", "index.db"); got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
	if got, want := OverridesPath(root), filepath.Join(root, ".routemap", "deploy.toml"); got != want {
		t.Errorf("OverridesPath = %q, want %q", got, want)
	}

	dir, err := EnsureRepoDir(root)
	if err != nil {
		t.Fatalf("EnsureRepoDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("EnsureRepoDir did not create %s", dir)
	}

	logPath, err := LogPath(root)
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(logPath)); err != nil {
		t.Errorf("LogPath did not create logs dir: %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "svc", "src", "Api.java")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("class Api {}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "svc/src/Api.java" {
		t.Errorf("CanonicalizePath = %q, want svc/src/Api.java", got)
	}

	// Files that do not exist yet are still canonicalised
	got, err = CanonicalizePath(filepath.Join(root, "missing.java"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath(missing): %v", err)
	}
	if got != "missing.java" {
		t.Errorf("CanonicalizePath(missing) = %q", got)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRepo(filepath.Join(root, "a", "b.java"), root) {
		t.Error("path inside repo reported outside")
	}
	if IsWithinRepo(filepath.Dir(root), root) {
		t.Error("parent dir reported inside repo")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(`svc\src\Api.java`); got != "svc/src/Api.java" {
		t.Errorf("NormalizePath = %q", got)
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "svc/src/Api.java")
	want := filepath.Join("/repo", "svc", "src", "Api.java")
	if got != want {
		t.Errorf("JoinRepoPath = %q, want %q", got, want)
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		p, dir string
		want   bool
	}{
		{"svc/src/Api.java", "svc", true},
		{"svc", "svc", true},
		{"svc2/Api.java", "svc", false},
		{"Api.java", "", true},
		{"Api.java", ".", true},
		{"other/Api.java", "svc/api", false},
	}
	for _, tt := range tests {
		if got := IsUnder(tt.p, tt.dir); got != tt.want {
			t.Errorf("IsUnder(%q, %q) = %v, want %v", tt.p, tt.dir, got, tt.want)
		}
	}
}
