package endpoint

import (
	"path/filepath"
	"strings"
)

// UnresolvedMarker is the text some config sources report for a field
// that could not be determined. It never reaches a composed URL.
const UnresolvedMarker = "null"

// DeployConfig holds what is known about how a module is served.
// Zero values mean unresolved.
type DeployConfig struct {
	Protocol    string `json:"protocol,omitempty" toml:"protocol,omitempty"`
	Host        string `json:"host,omitempty" toml:"host,omitempty"`
	Port        int    `json:"port,omitempty" toml:"port,omitzero"`
	ContextPath string `json:"contextPath,omitempty" toml:"context_path,omitempty"`
}

// Merge fills unresolved fields of c from other.
func (c DeployConfig) Merge(other DeployConfig) DeployConfig {
	if c.Protocol == "" {
		c.Protocol = other.Protocol
	}
	if c.Host == "" {
		c.Host = other.Host
	}
	if c.Port == 0 {
		c.Port = other.Port
	}
	if c.ContextPath == "" || c.ContextPath == UnresolvedMarker {
		if other.ContextPath != "" {
			c.ContextPath = other.ContextPath
		}
	}
	return c
}

// Resolved reports whether protocol and port are both known.
func (c DeployConfig) Resolved() bool {
	return c.Protocol != "" && c.Port != 0
}

// Scope narrows a declaration query. The zero value is the whole project.
type Scope struct {
	// Modules restricts the query to these module IDs.
	Modules []string
	// Paths restricts the query to files under these repo-relative dirs.
	Paths []string
	// Profiles are deployment profiles to apply when reading module config.
	Profiles []string
}

// IsProject reports whether the scope covers the whole project.
func (s Scope) IsProject() bool {
	return len(s.Modules) == 0 && len(s.Paths) == 0
}

// Includes reports whether a declaration falls within the scope.
func (s Scope) Includes(d Declaration) bool {
	if len(s.Modules) > 0 && !containsString(s.Modules, d.ModuleID) {
		return false
	}
	if len(s.Paths) == 0 {
		return true
	}
	file := filepath.ToSlash(d.File)
	for _, p := range s.Paths {
		p = strings.Trim(filepath.ToSlash(p), "/")
		if p == "" || p == "." || file == p || strings.HasPrefix(file, p+"/") {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
