// Package endpoint holds the data model shared by the discovery engine:
// raw declarations, resolved endpoints, module groups, scan snapshots and
// per-module deploy settings.
package endpoint

import (
	"sort"
	"strconv"
	"strings"
)

// HTTPMethod is an upper-case HTTP verb.
type HTTPMethod string

const (
	GET     HTTPMethod = "GET"
	POST    HTTPMethod = "POST"
	PUT     HTTPMethod = "PUT"
	PATCH   HTTPMethod = "PATCH"
	DELETE  HTTPMethod = "DELETE"
	HEAD    HTTPMethod = "HEAD"
	OPTIONS HTTPMethod = "OPTIONS"
	TRACE   HTTPMethod = "TRACE"
)

var methodRank = map[HTTPMethod]int{
	GET: 0, POST: 1, PUT: 2, PATCH: 3, DELETE: 4, HEAD: 5, OPTIONS: 6, TRACE: 7,
}

// ParseMethod converts a token such as "get", "GET" or "RequestMethod.GET".
func ParseMethod(token string) (HTTPMethod, bool) {
	token = strings.TrimSpace(token)
	if i := strings.LastIndex(token, "."); i >= 0 {
		token = token[i+1:]
	}
	m := HTTPMethod(strings.ToUpper(token))
	_, ok := methodRank[m]
	return m, ok
}

// SortMethods returns the distinct methods in canonical order.
func SortMethods(methods []HTTPMethod) []HTTPMethod {
	if len(methods) == 0 {
		return nil
	}
	seen := make(map[HTTPMethod]bool, len(methods))
	out := make([]HTTPMethod, 0, len(methods))
	for _, m := range methods {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return methodRank[out[i]] < methodRank[out[j]] })
	return out
}

// SourceRef is an opaque navigation token pointing back at a declaration.
// The engine carries it through unchanged and never interprets it.
type SourceRef string

// NewSourceRef builds the token the index adapter hands out: file:line#Class.method
func NewSourceRef(file string, line int, class, method string) SourceRef {
	return SourceRef(file + ":" + strconv.Itoa(line) + "#" + class + "." + method)
}

// Location splits the token for presentation layers that jump to source.
// ok is false when the token was not produced by NewSourceRef.
func (r SourceRef) Location() (file string, line int, ok bool) {
	s := string(r)
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[:i]
	}
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return "", 0, false
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], line, true
}

// Endpoint is one discovered route.
type Endpoint struct {
	// Methods is the verb set in canonical order; empty means any method.
	Methods []HTTPMethod `json:"methods,omitempty" yaml:"methods,omitempty"`
	// Path is the normalized route template, not joined with a context path.
	Path       string    `json:"path" yaml:"path"`
	ModuleID   string    `json:"moduleId" yaml:"moduleId"`
	ModuleName string    `json:"moduleName" yaml:"moduleName"`
	Handler    string    `json:"handler" yaml:"handler"`
	SourceRef  SourceRef `json:"sourceRef" yaml:"sourceRef"`
}

// MethodLabel renders the verb set, "ANY" when empty.
func (e Endpoint) MethodLabel() string {
	if len(e.Methods) == 0 {
		return "ANY"
	}
	parts := make([]string, len(e.Methods))
	for i, m := range e.Methods {
		parts[i] = string(m)
	}
	return strings.Join(parts, "|")
}

// Key identifies an endpoint for deduplication.
func (e Endpoint) Key() string {
	return e.ModuleID + "\x00" + e.MethodLabel() + "\x00" + e.Path + "\x00" + string(e.SourceRef)
}

// Matches reports whether the lower-cased query occurs in the path, handler,
// module name or method label. An empty query matches everything.
func (e Endpoint) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{e.Path, e.Handler, e.ModuleName, e.MethodLabel()} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
