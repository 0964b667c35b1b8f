package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"routemap/internal/config"
	"routemap/internal/index"
	"routemap/internal/paths"
)

func TestCollectStatusNoIndex(t *testing.T) {
	root := t.TempDir()
	resp, err := collectStatus(context.Background(), root, config.DefaultConfig(), time.Now())
	if err != nil {
		t.Fatalf("collectStatus: %v", err)
	}
	if resp.Index.Exists || resp.Index.Ready {
		t.Errorf("Index = %+v, want missing", resp.Index)
	}
	if resp.RepoRoot != root {
		t.Errorf("RepoRoot = %q", resp.RepoRoot)
	}

	out := formatStatusHuman(resp)
	if !strings.Contains(out, "not found") || !strings.Contains(out, "routemap index") {
		t.Errorf("human output:\n%s", out)
	}
}

func TestCollectStatusWithIndex(t *testing.T) {
	root := t.TempDir()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	meta := &index.IndexMeta{
		CreatedAt:        created,
		CommitHash:       "0123456789abcdef",
		RepoStateID:      "stale-state",
		ModuleCount:      3,
		FileCount:        40,
		DeclarationCount: 25,
		DetectionMethod:  "manifest",
	}
	if err := meta.Save(paths.RepoDir(root)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp, err := collectStatus(context.Background(), root, config.DefaultConfig(), created.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("collectStatus: %v", err)
	}
	st := resp.Index
	if !st.Exists || !st.Ready || st.Building {
		t.Errorf("Index = %+v, want ready", st)
	}
	if st.Fresh {
		t.Error("a state ID that does not match the sources is stale")
	}
	if st.IndexAge != "3 hours" {
		t.Errorf("IndexAge = %q", st.IndexAge)
	}
	if st.DeclarationCount != 25 || st.ModuleCount != 3 {
		t.Errorf("counts = %+v", st)
	}

	out := formatStatusHuman(resp)
	for _, want := range []string{"stale", "3 hours ago", "0123456", "Declarations: 25", "manifest"} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatStatusHumanBuilding(t *testing.T) {
	resp := &StatusResponseCLI{
		Version: "0.3.0",
		Index:   &IndexStatusCLI{Exists: true, Building: true, BuildHolder: "PID 4242", IndexAge: "just now"},
	}
	out := formatStatusHuman(resp)
	if !strings.Contains(out, "rebuilding") || !strings.Contains(out, "Builder:      PID 4242") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "just now ago") {
		t.Error("age suffix on just now")
	}
	if strings.Contains(out, "to refresh") {
		t.Error("refresh hint shown while building")
	}
}
