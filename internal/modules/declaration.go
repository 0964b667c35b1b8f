package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ModulesDeclarationFile is the default filename for module declarations
const ModulesDeclarationFile = "MODULES.toml"

// ModuleDeclaration represents a declared module in MODULES.toml
type ModuleDeclaration struct {
	// ID is optional; a stable ID is generated from the path when empty
	ID string `toml:"id,omitempty"`

	Name string `toml:"name"`

	// Path is the repo-relative path to the module root
	Path string `toml:"path"`

	Language string `toml:"language,omitempty"`

	// Owner is a free-form owner reference (e.g. @team-name)
	Owner string   `toml:"owner,omitempty"`
	Tags  []string `toml:"tags,omitempty"`
}

// ModulesFile represents the root structure of MODULES.toml
type ModulesFile struct {
	Version int                 `toml:"version"`
	Modules []ModuleDeclaration `toml:"module"`
}

// ParseModulesFile parses a MODULES.toml file from the given path
func ParseModulesFile(filePath string) (*ModulesFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read MODULES.toml: %w", err)
	}

	var modulesFile ModulesFile
	if err := toml.Unmarshal(data, &modulesFile); err != nil {
		return nil, fmt.Errorf("failed to parse MODULES.toml: %w", err)
	}

	if modulesFile.Version < 1 {
		modulesFile.Version = 1
	}

	return &modulesFile, nil
}

// LoadDeclaredModules loads declared modules from MODULES.toml if it exists.
// A missing file yields nil modules and no error.
func LoadDeclaredModules(repoRoot string, declarationFile string, stateId string) ([]*Module, error) {
	if declarationFile == "" {
		declarationFile = ModulesDeclarationFile
	}

	filePath := filepath.Join(repoRoot, declarationFile)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}

	modulesFile, err := ParseModulesFile(filePath)
	if err != nil {
		return nil, err
	}

	modules, err := convertDeclarationsToModules(repoRoot, modulesFile.Modules, stateId)
	if err != nil {
		return nil, err
	}
	SortByRoot(modules)
	return modules, nil
}

func convertDeclarationsToModules(repoRoot string, declarations []ModuleDeclaration, stateId string) ([]*Module, error) {
	modules := make([]*Module, 0, len(declarations))
	seen := make(map[string]string, len(declarations))

	for _, decl := range declarations {
		if strings.TrimSpace(decl.Path) == "" {
			return nil, fmt.Errorf("module declaration %q missing required 'path' field", decl.Name)
		}
		root := cleanRoot(decl.Path)
		if root == ".." || strings.HasPrefix(root, "../") || filepath.IsAbs(decl.Path) {
			return nil, fmt.Errorf("module path %q must stay inside the repository", decl.Path)
		}
		if prev, dup := seen[root]; dup {
			return nil, fmt.Errorf("modules %q and %q declare the same path %q", prev, decl.Name, root)
		}
		seen[root] = decl.Name

		moduleID := decl.ID
		if moduleID == "" {
			moduleID = GenerateStableModuleID(root)
		}

		absPath := filepath.Join(repoRoot, filepath.FromSlash(root))
		manifest, detected := detectManifestInDir(absPath)
		if manifest == ManifestNone {
			detected = detectLanguageFromSources(absPath)
		}
		language := decl.Language
		if language == "" {
			language = detected
		}

		name := decl.Name
		if name == "" {
			name = extractModuleName(absPath, manifest, root)
		}

		modules = append(modules, &Module{
			ID:           moduleID,
			Name:         name,
			RootPath:     root,
			ManifestType: manifest,
			Language:     language,
			DetectedAt:   time.Now().UTC().Format(time.RFC3339),
			StateId:      stateId,
		})
	}

	return modules, nil
}

// WriteModulesFile writes a ModulesFile to the given path
func WriteModulesFile(filePath string, modulesFile *ModulesFile) error {
	data, err := toml.Marshal(modulesFile)
	if err != nil {
		return fmt.Errorf("failed to marshal MODULES.toml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write MODULES.toml: %w", err)
	}

	return nil
}

// CreateExampleModulesFile writes a MODULES.toml describing the given modules,
// or a two-service example when none are known.
func CreateExampleModulesFile(filePath string, detected []*Module) error {
	example := &ModulesFile{Version: 1}
	for _, m := range detected {
		example.Modules = append(example.Modules, ModuleDeclaration{
			Name:     m.Name,
			Path:     m.RootPath,
			Language: m.Language,
		})
	}
	if len(example.Modules) == 0 {
		example.Modules = []ModuleDeclaration{
			{Name: "orders-service", Path: "services/orders", Language: LanguageJava, Owner: "@orders-team"},
			{Name: "users-service", Path: "services/users", Language: LanguageKotlin, Tags: []string{"public-api"}},
		}
	}

	return WriteModulesFile(filePath, example)
}
