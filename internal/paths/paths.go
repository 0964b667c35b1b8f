// Package paths centralises the on-disk layout of the .routemap directory
// and repo-relative path handling.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the per-repository working directory.
	DirName = ".routemap"

	// DatabaseFile holds the declaration index.
	DatabaseFile = "index.db"

	// OverridesFile pins deploy settings per module.
	OverridesFile = "deploy.toml"

	logsDir = "logs"
	logFile = "routemap.log"
)

// RepoDir returns <repoRoot>/.routemap.
func RepoDir(repoRoot string) string {
	return filepath.Join(repoRoot, DirName)
}

// EnsureRepoDir creates <repoRoot>/.routemap if needed and returns it.
func EnsureRepoDir(repoRoot string) (string, error) {
	dir := RepoDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", DirName, err)
	}
	return dir, nil
}

// DatabasePath returns the path of the declaration index database.
func DatabasePath(repoRoot string) string {
	return filepath.Join(RepoDir(repoRoot), DatabaseFile)
}

// OverridesPath returns the path of the deploy overrides file.
func OverridesPath(repoRoot string) string {
	return filepath.Join(RepoDir(repoRoot), OverridesFile)
}

// LogPath returns <repoRoot>/.routemap/logs/routemap.log, creating the logs directory.
func LogPath(repoRoot string) (string, error) {
	dir := filepath.Join(RepoDir(repoRoot), logsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating logs directory: %w", err)
	}
	return filepath.Join(dir, logFile), nil
}

// CanonicalizePath converts an absolute path to a repo-relative path with
// forward slashes. Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// JoinRepoPath joins a repo root with a canonical (forward slash) path.
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// IsUnder reports whether the canonical path p equals dir or lies below it.
// An empty dir or "." contains everything.
func IsUnder(p, dir string) bool {
	if dir == "" || dir == "." {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}
