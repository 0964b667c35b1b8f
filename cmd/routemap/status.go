package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"routemap/internal/config"
	"routemap/internal/index"
	"routemap/internal/output"
	"routemap/internal/paths"
	"routemap/internal/version"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show declaration index status",
	Long:  "Reports whether the declaration index exists, is ready to serve scans and matches the current sources.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI is the status report.
type StatusResponseCLI struct {
	Version  string          `json:"version"`
	RepoRoot string          `json:"repoRoot"`
	Index    *IndexStatusCLI `json:"index"`
}

// IndexStatusCLI describes the index on disk.
type IndexStatusCLI struct {
	Exists           bool      `json:"exists"`
	Ready            bool      `json:"ready"`
	Building         bool      `json:"building"`
	BuildHolder      string    `json:"buildHolder,omitempty"`
	Fresh            bool      `json:"fresh"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
	IndexAge         string    `json:"indexAge,omitempty"`
	CommitHash       string    `json:"commitHash,omitempty"`
	CommitsBehind    int       `json:"commitsBehind,omitempty"`
	HasUncommitted   bool      `json:"hasUncommitted,omitempty"`
	ModuleCount      int       `json:"moduleCount"`
	FileCount        int       `json:"fileCount"`
	DeclarationCount int       `json:"declarationCount"`
	FailedFiles      int       `json:"failedFiles,omitempty"`
	DetectionMethod  string    `json:"detectionMethod,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	e, err := newEnv(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := collectStatus(cmd.Context(), e.repoRoot, e.cfg, time.Now())
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		data, err := output.EncodeJSON(resp)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(formatStatusHuman(resp))
	return nil
}

func collectStatus(ctx context.Context, repoRoot string, cfg *config.Config, now time.Time) (*StatusResponseCLI, error) {
	dir := paths.RepoDir(repoRoot)
	resp := &StatusResponseCLI{
		Version:  version.Info(),
		RepoRoot: repoRoot,
		Index:    &IndexStatusCLI{},
	}
	if h := index.LockHolder(dir); h != nil {
		resp.Index.Building = true
		resp.Index.BuildHolder = h.String()
	} else {
		resp.Index.Building = index.IsLocked(dir)
	}

	meta, err := index.LoadMeta(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load index metadata: %w", err)
	}
	if meta == nil {
		resp.Index.Reason = "no index found"
		return resp, nil
	}

	st := resp.Index
	st.Exists = true
	st.Ready = !st.Building
	st.CreatedAt = meta.CreatedAt
	st.IndexAge = meta.Age(now)
	st.CommitHash = meta.CommitHash
	st.ModuleCount = meta.ModuleCount
	st.FileCount = meta.FileCount
	st.DeclarationCount = meta.DeclarationCount
	st.FailedFiles = meta.FailedFiles
	st.DetectionMethod = meta.DetectionMethod

	freshness := meta.CheckFreshness(ctx, repoRoot, cfg.Scan.ExcludeDirs)
	st.Fresh = freshness.Fresh
	st.Reason = freshness.Reason
	st.CommitsBehind = freshness.CommitsBehind
	st.HasUncommitted = freshness.HasUncommitted
	return resp, nil
}

func formatStatusHuman(resp *StatusResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "routemap %s\n", resp.Version)
	fmt.Fprintf(&b, "Repository: %s\n\n", resp.RepoRoot)

	st := resp.Index
	switch {
	case !st.Exists && st.Building:
		b.WriteString(output.WarningStyle.Render("Index: building (first build)") + "\n")
		if st.BuildHolder != "" {
			fmt.Fprintf(&b, "  Builder:      %s\n", st.BuildHolder)
		}
		return b.String()
	case !st.Exists:
		b.WriteString(output.WarningStyle.Render("Index: not found") + "\n")
		b.WriteString("  Run 'routemap index' to build it.\n")
		return b.String()
	case st.Building:
		b.WriteString(output.WarningStyle.Render("Index: rebuilding, scans wait until it completes") + "\n")
		if st.BuildHolder != "" {
			fmt.Fprintf(&b, "  Builder:      %s\n", st.BuildHolder)
		}
	case st.Fresh:
		b.WriteString(output.MethodStyle.Render("Index: ready, up to date") + "\n")
	default:
		b.WriteString(output.WarningStyle.Render("Index: ready, stale ("+st.Reason+")") + "\n")
	}

	age := st.IndexAge
	if age != "just now" {
		age += " ago"
	}
	fmt.Fprintf(&b, "  Built:        %s\n", age)
	if st.CommitHash != "" {
		commit := st.CommitHash
		if len(commit) > 7 {
			commit = commit[:7]
		}
		fmt.Fprintf(&b, "  Commit:       %s\n", commit)
	}
	fmt.Fprintf(&b, "  Modules:      %d (%s)\n", st.ModuleCount, st.DetectionMethod)
	fmt.Fprintf(&b, "  Files:        %d\n", st.FileCount)
	fmt.Fprintf(&b, "  Declarations: %d\n", st.DeclarationCount)
	if st.FailedFiles > 0 {
		fmt.Fprintf(&b, "  Failed files: %d\n", st.FailedFiles)
	}
	if !st.Fresh && !st.Building {
		b.WriteString("\n  Run 'routemap index' to refresh.\n")
	}
	return b.String()
}
