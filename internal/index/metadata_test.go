package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"routemap/internal/repostate"
)

func TestLoadMeta_NoFile(t *testing.T) {
	meta, err := LoadMeta(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatal("expected nil meta when file doesn't exist")
	}
}

func TestSaveAndLoadMeta(t *testing.T) {
	tmpDir := t.TempDir()

	original := &IndexMeta{
		CreatedAt:        time.Now().Truncate(time.Second),
		CommitHash:       "abc123def456",
		RepoStateID:      "state123",
		ModuleCount:      3,
		FileCount:        42,
		DeclarationCount: 17,
		Duration:         "3.2s",
		DetectionMethod:  "manifest",
	}

	if err := original.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, metadataFile)); os.IsNotExist(err) {
		t.Fatal("metadata file was not created")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, metadataFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temporary metadata file left behind")
	}

	loaded, err := LoadMeta(tmpDir)
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected non-nil metadata")
	}

	if loaded.Version != MetadataVersion {
		t.Errorf("Version: got %d, want %d", loaded.Version, MetadataVersion)
	}
	if !loaded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", loaded.CreatedAt, original.CreatedAt)
	}
	if loaded.RepoStateID != original.RepoStateID || loaded.CommitHash != original.CommitHash {
		t.Errorf("state fields: got %+v", loaded)
	}
	if loaded.DeclarationCount != 17 || loaded.ModuleCount != 3 || loaded.FileCount != 42 {
		t.Errorf("counts: got %+v", loaded)
	}
}

func TestLoadMeta_VersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()

	content := `{"version": 999, "createdAt": "2024-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(tmpDir, metadataFile), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	meta, err := LoadMeta(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatal("expected nil meta for version mismatch")
	}
}

func TestLoadMeta_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, metadataFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMeta(tmpDir); err == nil {
		t.Error("expected parse error")
	}
	if Ready(tmpDir) {
		t.Error("corrupt metadata should not count as ready")
	}
}

func TestReady(t *testing.T) {
	tmpDir := t.TempDir()

	if Ready(tmpDir) {
		t.Error("missing metadata should not be ready")
	}

	if err := (&IndexMeta{CreatedAt: time.Now()}).Save(tmpDir); err != nil {
		t.Fatal(err)
	}
	if !Ready(tmpDir) {
		t.Error("saved metadata without lock should be ready")
	}

	lock, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if Ready(tmpDir) {
		t.Error("index being rebuilt should not be ready")
	}
	lock.Release()
	if !Ready(tmpDir) {
		t.Error("index should be ready again after the lock is released")
	}
}

func TestCheckFreshness_NilMeta(t *testing.T) {
	var meta *IndexMeta
	result := meta.CheckFreshness(context.Background(), t.TempDir(), nil)

	if result.Fresh {
		t.Error("nil meta should not be fresh")
	}
	if result.Reason == "" {
		t.Error("should have a reason")
	}
}

func TestCheckFreshness_Fingerprint(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Ctl.java")
	if err := os.WriteFile(src, []byte("class Ctl {}"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	state, err := repostate.Compute(ctx, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state.Git {
		t.Skip("temp dir is inside a git work tree")
	}

	meta := &IndexMeta{CreatedAt: time.Now(), RepoStateID: state.RepoStateID}
	if r := meta.CheckFreshness(ctx, root, nil); !r.Fresh {
		t.Errorf("unchanged sources should be fresh: %+v", r)
	}

	if err := os.WriteFile(filepath.Join(root, "Other.kt"), []byte("class Other"), 0644); err != nil {
		t.Fatal(err)
	}
	r := meta.CheckFreshness(ctx, root, nil)
	if r.Fresh || r.Reason != "sources changed since last index" {
		t.Errorf("new source file should make index stale: %+v", r)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes"},
		{1 * time.Minute, "1 minute"},
		{2 * time.Hour, "2 hours"},
		{1 * time.Hour, "1 hour"},
		{48 * time.Hour, "2 days"},
		{24 * time.Hour, "1 day"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := humanDuration(tc.duration); got != tc.expected {
				t.Errorf("humanDuration(%v) = %q, want %q", tc.duration, got, tc.expected)
			}
		})
	}
}

func TestIndexMeta_Age(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := &IndexMeta{CreatedAt: now.Add(-3 * time.Hour)}
	if got := meta.Age(now); got != "3 hours" {
		t.Errorf("Age = %q, want %q", got, "3 hours")
	}
}

func TestCountCommitsBehind_EmptyRefs(t *testing.T) {
	ctx := context.Background()
	if n := countCommitsBehind(ctx, "/tmp", "", "abc123"); n != 0 {
		t.Errorf("expected 0 for empty fromCommit, got %d", n)
	}
	if n := countCommitsBehind(ctx, "/tmp", "abc123", ""); n != 0 {
		t.Errorf("expected 0 for empty toCommit, got %d", n)
	}
}

func TestCountCommitsBehind_InvalidRepo(t *testing.T) {
	if n := countCommitsBehind(context.Background(), "/nonexistent/repo", "abc123", "def456"); n != 0 {
		t.Errorf("expected 0 for invalid repo, got %d", n)
	}
}
