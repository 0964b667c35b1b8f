// Package urls rebuilds URLs for discovered endpoints from a module's
// deploy config.
package urls

import (
	"net"
	"strconv"
	"strings"

	"routemap/internal/endpoint"
)

// Defaults used for unresolved deploy config fields.
const (
	DefaultProtocol = "http"
	DefaultHost     = "localhost"
	DefaultPort     = 8080
)

// Action identifies one of the copy actions offered on an endpoint.
type Action int

const (
	CopyFullURL Action = iota
	CopyRelativePath
)

func (a Action) String() string {
	switch a {
	case CopyFullURL:
		return "copy-full-url"
	case CopyRelativePath:
		return "copy-relative-path"
	default:
		return "unknown"
	}
}

// Compose produces the text for a copy action. Unknown actions fall back
// to the full URL.
func Compose(action Action, ep endpoint.Endpoint, cfg endpoint.DeployConfig) string {
	if action == CopyRelativePath {
		return ComposeRelativePath(ep, cfg)
	}
	return ComposeFullURL(ep, cfg)
}

// ComposeFullURL returns protocol://host:port + context path + route.
// Unresolved fields take the package defaults.
func ComposeFullURL(ep endpoint.Endpoint, cfg endpoint.DeployConfig) string {
	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	if protocol == "" || protocol == endpoint.UnresolvedMarker {
		protocol = DefaultProtocol
	}
	// JoinHostPort adds the brackets an IPv6 literal needs.
	host := strings.Trim(strings.TrimSpace(cfg.Host), "[]")
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port <= 0 || port > 65535 {
		port = DefaultPort
	}
	return protocol + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + ComposeRelativePath(ep, cfg)
}

// ComposeRelativePath returns the context path joined with the route, e.g.
// "/api" + "/users/{id}" = "/api/users/{id}". It always starts with exactly
// one slash.
func ComposeRelativePath(ep endpoint.Endpoint, cfg endpoint.DeployConfig) string {
	return NormalizeContextPath(cfg.ContextPath) + endpoint.NormalizePath(ep.Path)
}

// NormalizeContextPath returns "" for empty, root or unresolved context
// paths, otherwise the path with one leading and no trailing slash.
func NormalizeContextPath(cp string) string {
	cp = strings.TrimSpace(cp)
	if cp == "" || cp == endpoint.UnresolvedMarker {
		return ""
	}
	cp = strings.Trim(cp, "/")
	if cp == "" {
		return ""
	}
	return endpoint.NormalizePath(cp)
}
