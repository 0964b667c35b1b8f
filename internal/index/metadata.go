// Package index builds the declaration index and tracks its readiness and freshness.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"routemap/internal/repostate"
)

const (
	// MetadataVersion is the current version of the metadata format.
	MetadataVersion = 1

	metadataFile = "index-meta.json"
)

// IndexMeta describes the last completed index build.
type IndexMeta struct {
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"createdAt"`
	CommitHash       string    `json:"commitHash,omitempty"`
	RepoStateID      string    `json:"repoStateId"`
	ModuleCount      int       `json:"moduleCount"`
	FileCount        int       `json:"fileCount"`
	DeclarationCount int       `json:"declarationCount"`
	FailedFiles      int       `json:"failedFiles,omitempty"`
	Duration         string    `json:"duration"`
	DetectionMethod  string    `json:"detectionMethod"`
}

// FreshnessResult describes index freshness status.
type FreshnessResult struct {
	Fresh            bool   `json:"fresh"`
	Reason           string `json:"reason,omitempty"`
	CommitsBehind    int    `json:"commitsBehind,omitempty"`
	HasUncommitted   bool   `json:"hasUncommitted,omitempty"`
	IndexedCommit    string `json:"indexedCommit,omitempty"`
	CurrentCommit    string `json:"currentCommit,omitempty"`
	CurrentRepoState string `json:"currentRepoState,omitempty"`
}

// LoadMeta loads index metadata from the .routemap directory.
// Returns nil without error if no metadata file exists.
func LoadMeta(dir string) (*IndexMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	var meta IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing index metadata: %w", err)
	}

	// Version mismatch - treat as no metadata
	if meta.Version != MetadataVersion {
		return nil, nil
	}

	return &meta, nil
}

// Save writes index metadata to the .routemap directory.
func (m *IndexMeta) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating .routemap directory: %w", err)
	}

	m.Version = MetadataVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}

	// Written via rename so readers never see a partial file.
	path := filepath.Join(dir, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}

	return nil
}

// Ready reports whether the index in dir can serve queries: a build has
// completed and no build is currently running.
func Ready(dir string) bool {
	if IsLocked(dir) {
		return false
	}
	meta, err := LoadMeta(dir)
	return err == nil && meta != nil
}

// CheckFreshness determines if the index is up to date with the sources.
func (m *IndexMeta) CheckFreshness(ctx context.Context, repoRoot string, excludeDirs []string) FreshnessResult {
	if m == nil {
		return FreshnessResult{
			Fresh:  false,
			Reason: "no index metadata found",
		}
	}

	rs, err := repostate.Compute(ctx, repoRoot, excludeDirs)
	if err != nil {
		return FreshnessResult{Reason: fmt.Sprintf("cannot compute source state: %v", err)}
	}

	result := FreshnessResult{
		IndexedCommit:    m.CommitHash,
		CurrentCommit:    rs.HeadCommit,
		CurrentRepoState: rs.RepoStateID,
	}

	if m.RepoStateID == rs.RepoStateID {
		result.Fresh = true
		return result
	}

	if !rs.Git {
		result.Reason = "sources changed since last index"
		return result
	}

	if m.CommitHash == rs.HeadCommit && rs.Dirty {
		result.HasUncommitted = true
		result.Reason = "uncommitted changes detected"
		return result
	}

	if m.CommitHash != rs.HeadCommit {
		behind := countCommitsBehind(ctx, repoRoot, m.CommitHash, rs.HeadCommit)
		result.CommitsBehind = behind

		if rs.Dirty {
			result.HasUncommitted = true
			if behind > 0 {
				result.Reason = fmt.Sprintf("%d commit(s) behind HEAD + uncommitted changes", behind)
			} else {
				result.Reason = "uncommitted changes detected"
			}
		} else if behind > 0 {
			result.Reason = fmt.Sprintf("%d commit(s) behind HEAD", behind)
		} else {
			result.Reason = "repository state changed"
		}
		return result
	}

	result.Reason = "repository state changed"
	return result
}

// Age returns a human-readable age of the index.
func (m *IndexMeta) Age(now time.Time) string {
	return humanDuration(now.Sub(m.CreatedAt))
}

func countCommitsBehind(ctx context.Context, repoRoot, fromCommit, toCommit string) int {
	if fromCommit == "" || toCommit == "" {
		return 0
	}

	cmd := exec.CommandContext(ctx, "git", "rev-list", "--count", fmt.Sprintf("%s..%s", fromCommit, toCommit))
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return 0
	}

	var count int
	fmt.Sscanf(strings.TrimSpace(string(out)), "%d", &count)
	return count
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
