package repostate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns empty hash", "", EmptyHash},
		{"simple string", "hello", fmt.Sprintf("%x", sha256.Sum256([]byte("hello")))},
		{"multiline string", "line1\nline2", fmt.Sprintf("%x", sha256.Sum256([]byte("line1\nline2")))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := hashString(tc.input); got != tc.expected {
				t.Errorf("hashString(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestEmptyHashConstant(t *testing.T) {
	expected := fmt.Sprintf("%x", sha256.Sum256([]byte("")))
	if EmptyHash != expected {
		t.Errorf("EmptyHash = %q, expected %q (SHA256 of empty string)", EmptyHash, expected)
	}
}

func TestComputeRepoStateID(t *testing.T) {
	a := computeRepoStateID("abc123", "s", "w", "u")
	if len(a) != 64 {
		t.Errorf("Expected 64 character hash, got %d characters", len(a))
	}
	if a != computeRepoStateID("abc123", "s", "w", "u") {
		t.Error("computeRepoStateID not consistent for same inputs")
	}
	if a == computeRepoStateID("different", "s", "w", "u") {
		t.Error("Different inputs should produce different hashes")
	}
}

func TestTracked(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"OrderController.java", true},
		{"UserController.kt", true},
		{"build.gradle.kts", true},
		{"build.gradle", true},
		{"pom.xml", true},
		{"application.properties", true},
		{"application-dev.yml", true},
		{"README.md", false},
		{"main.go", false},
	}
	for _, tt := range tests {
		if got := Tracked(tt.name); got != tt.want {
			t.Errorf("Tracked(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFingerprint(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "main", "java", "Ctl.java")
	writeFile(t, src, "class Ctl {}")
	writeFile(t, filepath.Join(root, "README.md"), "docs")

	first, err := Fingerprint(root, []string{"target"})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	again, _ := Fingerprint(root, []string{"target"})
	if first != again {
		t.Error("fingerprint should be stable without changes")
	}

	// Untracked and excluded files do not count.
	writeFile(t, filepath.Join(root, "NOTES.md"), "more docs")
	writeFile(t, filepath.Join(root, "target", "Gen.java"), "class Gen {}")
	writeFile(t, filepath.Join(root, ".idea", "Cache.java"), "class Cache {}")
	if fp, _ := Fingerprint(root, []string{"target"}); fp != first {
		t.Error("fingerprint changed for ignored files")
	}

	writeFile(t, src, "class Ctl { void x() {} }")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, future, future); err != nil {
		t.Fatal(err)
	}
	if fp, _ := Fingerprint(root, []string{"target"}); fp == first {
		t.Error("fingerprint did not change after editing a source file")
	}
}

func TestCompute_NonGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "A.kt"), "class A")

	state, err := Compute(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if state.Git || state.HeadCommit != "" {
		t.Errorf("expected fingerprint state, got %+v", state)
	}
	fp, _ := Fingerprint(root, nil)
	if state.RepoStateID != fp {
		t.Errorf("RepoStateID = %q, want fingerprint %q", state.RepoStateID, fp)
	}
}

// initGitRepo creates a repository with one commit, skipping when git is unavailable.
func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Ctl.java"), "class Ctl {}")
	for _, args := range [][]string{
		{"init", "-q"},
		{"add", "."},
		{"-c", "user.email=dev@example.com", "-c", "user.name=dev", "commit", "-q", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git %v failed: %v: %s", args, err, out)
		}
	}
	return root
}

func TestComputeRepoState(t *testing.T) {
	root := initGitRepo(t)
	ctx := context.Background()

	if !IsGitRepository(ctx, root) {
		t.Fatalf("%s should be a git repository", root)
	}

	clean, err := ComputeRepoState(ctx, root)
	if err != nil {
		t.Fatalf("ComputeRepoState: %v", err)
	}
	if len(clean.HeadCommit) != 40 || !clean.Git {
		t.Errorf("unexpected state: %+v", clean)
	}
	if clean.Dirty {
		t.Error("fresh commit should not be dirty")
	}

	// Files outside the pathspecs leave the state alone.
	writeFile(t, filepath.Join(root, "README.md"), "docs")
	if s, _ := ComputeRepoState(ctx, root); s.RepoStateID != clean.RepoStateID {
		t.Error("state changed for an untracked non-source file")
	}

	writeFile(t, filepath.Join(root, "Ctl.java"), "class Ctl { void x() {} }")
	dirty, err := ComputeRepoState(ctx, root)
	if err != nil {
		t.Fatalf("ComputeRepoState: %v", err)
	}
	if !dirty.Dirty || dirty.RepoStateID == clean.RepoStateID {
		t.Errorf("edit not reflected: %+v", dirty)
	}
	if dirty.HeadCommit != clean.HeadCommit {
		t.Error("HeadCommit changed without a commit")
	}

	top, err := GetRepoRoot(ctx, root)
	if err != nil {
		t.Fatalf("GetRepoRoot: %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if got, _ := filepath.EvalSymlinks(top); got != want {
		t.Errorf("GetRepoRoot = %q, want %q", got, want)
	}
}

func TestNonGitDirectory(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	ctx := context.Background()
	if IsGitRepository(ctx, tmpDir) {
		t.Skipf("%s is inside a git work tree", tmpDir)
	}
	if _, err := ComputeRepoState(ctx, tmpDir); err == nil {
		t.Error("Expected error for non-git directory")
	}
	if _, err := GetRepoRoot(ctx, tmpDir); err == nil {
		t.Error("Expected error for non-git directory")
	}
}
