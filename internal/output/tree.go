package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"routemap/internal/endpoint"
)

// Palette shared by the tree renderer and CLI messages.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	RootStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	GroupStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHighlight)
	MethodStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
)

// RootLabel is the tree root text: the total endpoint count.
func RootLabel(r *endpoint.ScanResult) string {
	total := 0
	if r != nil {
		total = r.TotalCount
	}
	if total == 1 {
		return "1 endpoint"
	}
	return fmt.Sprintf("%d endpoints", total)
}

// RenderTree draws the snapshot as a tree of module groups.
func RenderTree(r *endpoint.ScanResult, opts Options) string {
	root := tree.Root(RootStyle.Render(RootLabel(r))).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(MutedStyle)

	if r != nil {
		for _, g := range r.Groups {
			branch := tree.Root(GroupStyle.Render(g.DisplayName())).
				Enumerator(tree.RoundedEnumerator).
				EnumeratorStyle(MutedStyle)
			width := methodWidth(g.Endpoints)
			for _, ep := range g.Endpoints {
				branch.Child(EndpointLine(ep, width, opts))
			}
			root.Child(branch)
		}
	}
	return root.String()
}

// EndpointLine renders "GET  /path  Class#method", padding the method
// column to width.
func EndpointLine(ep endpoint.Endpoint, width int, opts Options) string {
	label := ep.MethodLabel()
	pad := ""
	if n := width - len(label); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	line := MethodStyle.Render(label) + pad + "  " + ep.Path + "  " + MutedStyle.Render(ep.Handler)
	if opts.ShowSource {
		line += "  " + MutedStyle.Render("("+sourceLocation(ep)+")")
	}
	return line
}

func methodWidth(eps []endpoint.Endpoint) int {
	w := 0
	for _, ep := range eps {
		if n := len(ep.MethodLabel()); n > w {
			w = n
		}
	}
	return w
}
