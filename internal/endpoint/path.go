package endpoint

import "strings"

// NormalizePath canonicalises a route template: surrounding whitespace is
// trimmed, repeated slashes collapse, a leading slash is ensured and a
// trailing slash is removed unless the path is the root. "" becomes "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	var b strings.Builder
	b.Grow(len(p) + 1)
	if p[0] != '/' {
		b.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	out := b.String()
	if len(out) > 1 {
		out = strings.TrimRight(out, "/")
		if out == "" {
			out = "/"
		}
	}
	return out
}

// JoinPath joins a prefix and a route and normalizes the result.
func JoinPath(prefix, route string) string {
	prefix = strings.TrimSpace(prefix)
	route = strings.TrimSpace(route)
	switch {
	case prefix == "":
		return NormalizePath(route)
	case route == "":
		return NormalizePath(prefix)
	}
	return NormalizePath(prefix + "/" + route)
}
