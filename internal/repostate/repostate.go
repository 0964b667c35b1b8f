package repostate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"routemap/internal/errors"
)

const (
	// EmptyHash represents an empty diff/list hash
	EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Pathspecs limits git state to the files that can change routes or deploy settings.
var Pathspecs = []string{
	"*.java", "*.kt", "*.kts",
	"*.properties", "*.yml", "*.yaml",
	"*pom.xml", "*.gradle",
}

// RepoState represents the current state of the repository sources
type RepoState struct {
	RepoStateID         string `json:"repoStateId"`
	HeadCommit          string `json:"headCommit,omitempty"`
	StagedDiffHash      string `json:"stagedDiffHash,omitempty"`
	WorkingTreeDiffHash string `json:"workingTreeDiffHash,omitempty"`
	UntrackedListHash   string `json:"untrackedListHash,omitempty"`
	Dirty               bool   `json:"dirty"`
	// Git is false when the state was computed from file fingerprints
	Git        bool   `json:"git"`
	ComputedAt string `json:"computedAt"`
}

// Compute returns the git-based state when repoRoot is a git work tree, and a
// file fingerprint otherwise (also for a repository without commits).
func Compute(ctx context.Context, repoRoot string, excludeDirs []string) (*RepoState, error) {
	if IsGitRepository(ctx, repoRoot) {
		if state, err := ComputeRepoState(ctx, repoRoot); err == nil {
			return state, nil
		}
	}
	fp, err := Fingerprint(repoRoot, excludeDirs)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Failed to fingerprint sources", err, nil)
	}
	return &RepoState{
		RepoStateID: fp,
		ComputedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ComputeRepoState computes the current repository state using git commands
func ComputeRepoState(ctx context.Context, repoRoot string) (*RepoState, error) {
	headCommit, err := git(ctx, repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return nil, errors.New(
			errors.InternalError,
			"Failed to get HEAD commit",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git status",
					Safe:        true,
					Description: "Check if you're in a valid git repository",
				},
			},
		)
	}
	headCommit = strings.TrimSpace(headCommit)

	stagedDiff, err := git(ctx, repoRoot, withPathspecs("diff", "--cached")...)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Failed to get staged diff", err, nil)
	}
	stagedDiffHash := hashString(stagedDiff)

	workingDiff, err := git(ctx, repoRoot, withPathspecs("diff", "HEAD")...)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Failed to get working tree diff", err, nil)
	}
	workingTreeDiffHash := hashString(workingDiff)

	untrackedFiles, err := git(ctx, repoRoot, withPathspecs("ls-files", "--others", "--exclude-standard")...)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Failed to get untracked files", err, nil)
	}
	untrackedListHash := hashString(untrackedFiles)

	dirty := stagedDiffHash != EmptyHash ||
		workingTreeDiffHash != EmptyHash ||
		untrackedListHash != EmptyHash

	return &RepoState{
		RepoStateID:         computeRepoStateID(headCommit, stagedDiffHash, workingTreeDiffHash, untrackedListHash),
		HeadCommit:          headCommit,
		StagedDiffHash:      stagedDiffHash,
		WorkingTreeDiffHash: workingTreeDiffHash,
		UntrackedListHash:   untrackedListHash,
		Dirty:               dirty,
		Git:                 true,
		ComputedAt:          time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Fingerprint hashes path, size and modification time of every tracked source
// file under repoRoot. Hidden and excluded directories are skipped.
func Fingerprint(repoRoot string, excludeDirs []string) (string, error) {
	exclude := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		exclude[d] = true
	}

	var lines []string
	err := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != repoRoot && (strings.HasPrefix(d.Name(), ".") || exclude[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Tracked(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(repoRoot, path)
		lines = append(lines, fmt.Sprintf("%s\t%d\t%d", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Strings(lines)
	return hashString(strings.Join(lines, "\n")), nil
}

// Tracked reports whether a file name matches one of the Pathspecs.
func Tracked(name string) bool {
	for _, p := range Pathspecs {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func withPathspecs(args ...string) []string {
	return append(append(args, "--"), Pathspecs...)
}

func git(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// hashString computes SHA256 hash of a string
func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// computeRepoStateID computes the composite repoStateId from all components
func computeRepoStateID(headCommit, stagedHash, workingHash, untrackedHash string) string {
	composite := fmt.Sprintf("%s:%s:%s:%s", headCommit, stagedHash, workingHash, untrackedHash)
	return hashString(composite)
}

// IsGitRepository checks if the given path is inside a git work tree
func IsGitRepository(ctx context.Context, repoRoot string) bool {
	out, err := git(ctx, repoRoot, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// GetRepoRoot finds the git repository root from the given directory
func GetRepoRoot(ctx context.Context, startPath string) (string, error) {
	out, err := git(ctx, startPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.New(
			errors.InternalError,
			"Not a git repository",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "routemap --repo <dir>",
					Safe:        true,
					Description: "Point routemap at the project directory explicitly",
				},
			},
		)
	}
	return strings.TrimSpace(out), nil
}
