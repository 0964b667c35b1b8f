package modules

import (
	"encoding/xml"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"routemap/internal/paths"
	"routemap/internal/slogutil"
)

// ManifestFile represents a build file that marks a module root
type ManifestFile struct {
	FileName string
	Language string
	// Priority breaks ties when several build files share a directory
	Priority int
}

// ManifestFiles is the list of build files to search for, in priority order
var ManifestFiles = []ManifestFile{
	{FileName: ManifestPomXML, Language: LanguageJava, Priority: 10},
	{FileName: ManifestBuildGradleKts, Language: LanguageKotlin, Priority: 9},
	{FileName: ManifestBuildGradle, Language: LanguageJava, Priority: 9},
}

// DetectionResult represents the result of module detection
type DetectionResult struct {
	Modules         []*Module
	DetectionMethod string // "explicit", "manifest", "fallback"
}

// DetectModules detects modules in a repository using the cascading resolution order:
// explicit roots, then build files (nested modules included), then the repository root.
func DetectModules(repoRoot string, explicitRoots []string, ignoreDirs []string, stateId string, logger *slog.Logger) (*DetectionResult, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	if len(explicitRoots) > 0 {
		modules := detectExplicitModules(repoRoot, explicitRoots, stateId, logger)
		SortByRoot(modules)
		return &DetectionResult{Modules: modules, DetectionMethod: "explicit"}, nil
	}

	modules, err := detectManifestModules(repoRoot, ignoreDirs, stateId, logger)
	if err != nil {
		return nil, err
	}
	if len(modules) > 0 {
		SortByRoot(modules)
		return &DetectionResult{Modules: modules, DetectionMethod: "manifest"}, nil
	}

	return &DetectionResult{
		Modules:         []*Module{fallbackModule(repoRoot, stateId, logger)},
		DetectionMethod: "fallback",
	}, nil
}

func detectExplicitModules(repoRoot string, explicitRoots []string, stateId string, logger *slog.Logger) []*Module {
	var modules []*Module

	for _, root := range explicitRoots {
		root = cleanRoot(root)
		absPath := paths.JoinRepoPath(repoRoot, root)

		if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
			logger.Warn("Explicit module root does not exist", "root", root)
			continue
		}

		manifest, language := detectManifestInDir(absPath)
		if manifest == ManifestNone {
			language = detectLanguageFromSources(absPath)
		}

		module := NewModule(GenerateStableModuleID(root), extractModuleName(absPath, manifest, root), root, manifest, language, stateId)
		modules = append(modules, module)

		logger.Debug("Detected explicit module",
			"id", module.ID,
			"name", module.Name,
			"rootPath", root,
			"manifestType", manifest,
		)
	}

	return modules
}

// detectManifestModules walks the repository and records every directory holding a
// build file. Sub-projects of a multi-module build are modules of their own.
func detectManifestModules(repoRoot string, ignoreDirs []string, stateId string, logger *slog.Logger) ([]*Module, error) {
	var modules []*Module
	ignoreMap := make(map[string]bool)
	for _, dir := range ignoreDirs {
		ignoreMap[dir] = true
	}

	err := filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(repoRoot, path)
		relPath = paths.NormalizePath(relPath)
		if relPath != RootModulePath {
			if strings.HasPrefix(d.Name(), ".") || shouldIgnore(relPath, ignoreMap) {
				return filepath.SkipDir
			}
		}

		manifest, language := detectManifestInDir(path)
		if manifest == ManifestNone {
			return nil
		}
		if manifest == ManifestPomXML && language == LanguageJava && hasKotlinSources(path) {
			language = LanguageKotlin
		}

		module := NewModule(GenerateStableModuleID(relPath), extractModuleName(path, manifest, relPath), relPath, manifest, language, stateId)
		modules = append(modules, module)

		logger.Debug("Detected manifest module",
			"id", module.ID,
			"name", module.Name,
			"rootPath", relPath,
			"manifestType", manifest,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return modules, nil
}

func fallbackModule(repoRoot, stateId string, logger *slog.Logger) *Module {
	name := filepath.Base(filepath.Clean(repoRoot))
	module := NewModule(GenerateStableModuleID(RootModulePath), name, RootModulePath, ManifestNone, detectLanguageFromSources(repoRoot), stateId)
	logger.Debug("No build files found, using repository root as module", "name", name)
	return module
}

// detectManifestInDir checks for build files in a specific directory
func detectManifestInDir(dir string) (string, string) {
	for _, mf := range ManifestFiles {
		if _, err := os.Stat(filepath.Join(dir, mf.FileName)); err == nil {
			return mf.FileName, mf.Language
		}
	}
	return ManifestNone, LanguageUnknown
}

func hasKotlinSources(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "src", "main", "kotlin"))
	return err == nil && info.IsDir()
}

// detectLanguageFromSources looks at the standard source roots of a JVM project
func detectLanguageFromSources(dir string) string {
	if hasKotlinSources(dir) {
		return LanguageKotlin
	}
	if info, err := os.Stat(filepath.Join(dir, "src", "main", "java")); err == nil && info.IsDir() {
		return LanguageJava
	}
	return LanguageUnknown
}

// extractModuleName reads the project name from the build file, else the directory name
func extractModuleName(dir, manifestType, relPath string) string {
	var name string
	switch manifestType {
	case ManifestPomXML:
		name = extractNameFromPom(filepath.Join(dir, ManifestPomXML))
	case ManifestBuildGradle, ManifestBuildGradleKts:
		name = extractNameFromGradleSettings(dir)
	}
	if name != "" {
		return name
	}

	if relPath != "" && relPath != RootModulePath {
		parts := strings.Split(relPath, "/")
		return parts[len(parts)-1]
	}
	return filepath.Base(filepath.Clean(dir))
}

type pomProject struct {
	ArtifactID string `xml:"artifactId"`
}

// extractNameFromPom returns the project's own artifactId (not the parent's)
func extractNameFromPom(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return ""
	}
	return strings.TrimSpace(pom.ArtifactID)
}

var rootProjectNamePattern = regexp.MustCompile(`rootProject\.name\s*=\s*["']([^"']+)["']`)

// extractNameFromGradleSettings reads rootProject.name from settings.gradle(.kts)
func extractNameFromGradleSettings(dir string) string {
	for _, name := range []string{"settings.gradle.kts", "settings.gradle"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if m := rootProjectNamePattern.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return ""
}

func cleanRoot(root string) string {
	root = paths.NormalizePath(filepath.Clean(root))
	root = strings.TrimPrefix(root, "./")
	if root == "" {
		return RootModulePath
	}
	return root
}

// shouldIgnore checks if a directory or any of its parents should be ignored
func shouldIgnore(relPath string, ignoreMap map[string]bool) bool {
	if ignoreMap[relPath] {
		return true
	}
	for _, part := range strings.Split(relPath, "/") {
		if ignoreMap[part] {
			return true
		}
	}
	return false
}
