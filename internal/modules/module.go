package modules

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"routemap/internal/paths"
)

// Module represents a deployable unit of the repository (a Maven or Gradle project)
type Module struct {
	// ID is the stable identifier derived from the root path
	ID string `json:"id"`

	// Name is the artifact or project name
	Name string `json:"name"`

	// RootPath is the repo-relative path to the module root ("." for the repo root)
	RootPath string `json:"rootPath"`

	// ManifestType indicates which build file was used to detect this module
	ManifestType string `json:"manifestType"`

	// Language is the primary language of the module
	Language string `json:"language"`

	DetectedAt string `json:"detectedAt"`
	StateId    string `json:"stateId"`
}

// Well-known JVM build files
const (
	ManifestPomXML         = "pom.xml"
	ManifestBuildGradle    = "build.gradle"
	ManifestBuildGradleKts = "build.gradle.kts"
	ManifestNone           = "" // declared, explicit or fallback module
)

const (
	LanguageJava    = "java"
	LanguageKotlin  = "kotlin"
	LanguageUnknown = "unknown"
)

// RootModulePath is the RootPath of a module rooted at the repository root.
const RootModulePath = "."

// NewModule creates a new Module with the current timestamp
func NewModule(id, name, rootPath, manifestType, language, stateId string) *Module {
	return &Module{
		ID:           id,
		Name:         name,
		RootPath:     rootPath,
		ManifestType: manifestType,
		Language:     language,
		DetectedAt:   time.Now().UTC().Format(time.RFC3339),
		StateId:      stateId,
	}
}

// IsManifestBased returns true if the module was detected via a build file
func (m *Module) IsManifestBased() bool {
	return m.ManifestType != ManifestNone
}

// Contains reports whether the repo-relative file path lies inside the module root.
func (m *Module) Contains(relPath string) bool {
	if m.RootPath == RootModulePath || m.RootPath == "" {
		return true
	}
	return paths.IsUnder(paths.NormalizePath(relPath), m.RootPath)
}

// GenerateStableModuleID derives a module ID from its normalized root path.
// Format: rm:mod:<hash>
func GenerateStableModuleID(modulePath string) string {
	normalizedPath := paths.NormalizePath(modulePath)
	if normalizedPath == "" {
		normalizedPath = RootModulePath
	}
	hash := sha256.Sum256([]byte(normalizedPath))
	return "rm:mod:" + hex.EncodeToString(hash[:8])
}

// IsValidModuleID checks if a string looks like a generated module ID
func IsValidModuleID(moduleID string) bool {
	parts := strings.Split(moduleID, ":")
	return len(parts) == 3 && parts[0] == "rm" && parts[1] == "mod" && parts[2] != ""
}

// Owner returns the module with the deepest root containing relPath.
// Nested modules win over their parents; nil when nothing matches.
func Owner(mods []*Module, relPath string) *Module {
	var best *Module
	bestDepth := -1
	for _, m := range mods {
		if !m.Contains(relPath) {
			continue
		}
		depth := 0
		if m.RootPath != RootModulePath && m.RootPath != "" {
			depth = strings.Count(m.RootPath, "/") + 1
		}
		if depth > bestDepth {
			best, bestDepth = m, depth
		}
	}
	return best
}

// SortByRoot orders modules by root path, the repository root first.
func SortByRoot(mods []*Module) {
	sort.SliceStable(mods, func(i, j int) bool {
		a, b := mods[i].RootPath, mods[j].RootPath
		if a == RootModulePath {
			return b != RootModulePath
		}
		if b == RootModulePath {
			return false
		}
		return a < b
	})
}
