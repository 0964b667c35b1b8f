// Package extract finds annotated methods in Java and Kotlin sources and
// turns them into raw declarations for the declaration index.
package extract

import (
	"errors"
	"path/filepath"
	"strings"

	"routemap/internal/endpoint"
)

// ErrNoCGO is returned when the binary was built without tree-sitter support.
var ErrNoCGO = errors.New("declaration extraction requires a cgo build")

// LanguageFromPath maps a file extension to a supported language.
func LanguageFromPath(path string) (endpoint.Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return endpoint.LangJava, true
	case ".kt", ".kts":
		return endpoint.LangKotlin, true
	default:
		return "", false
	}
}

// Enabled filters languages by the configured list. An empty list enables all.
func Enabled(lang endpoint.Language, languages []string) bool {
	if len(languages) == 0 {
		return true
	}
	for _, l := range languages {
		if strings.EqualFold(l, string(lang)) {
			return true
		}
	}
	return false
}

// routingHint reports whether source could contain a mapping annotation.
// Files without any of these markers are skipped before parsing.
func routingHint(source []byte) bool {
	s := string(source)
	return strings.Contains(s, "Mapping") || strings.Contains(s, "@Path") ||
		strings.Contains(s, "javax.ws.rs") || strings.Contains(s, "jakarta.ws.rs")
}
