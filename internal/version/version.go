// Package version holds build metadata for routemap.
package version

import (
	"runtime/debug"
	"strings"
)

// Set through -ldflags "-X routemap/internal/version.Version=...".
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Current returns the ldflags values. When no commit was stamped, the vcs
// settings recorded by the Go toolchain fill the gap.
func Current() Build {
	b := Build{Version: Version, Commit: Commit, Date: BuildDate}
	if b.Commit != "unknown" && b.Commit != "" {
		return b
	}
	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}

// ShortCommit is the first seven characters of the commit, or "" when the
// commit is unknown or already short.
func (b Build) ShortCommit() string {
	if b.Commit == "unknown" || len(b.Commit) <= 7 {
		return ""
	}
	return b.Commit[:7]
}

// Info returns "0.3.0" or "0.3.0 (abc1234)", with a "+dirty" marker for
// builds from a modified tree.
func Info() string {
	b := Current()
	short := b.ShortCommit()
	if short == "" {
		return b.Version
	}
	if b.Dirty {
		short += "+dirty"
	}
	return b.Version + " (" + short + ")"
}

// Full is the multi-line text printed by `routemap version`.
func Full() string {
	b := Current()
	var sb strings.Builder
	sb.WriteString("routemap version " + b.Version + "\n")
	sb.WriteString("Commit: " + b.Commit)
	if b.Dirty {
		sb.WriteString(" (modified)")
	}
	sb.WriteString("\nBuilt: " + b.Date)
	return sb.String()
}
