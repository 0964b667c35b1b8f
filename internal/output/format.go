package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"routemap/internal/endpoint"
)

// Format selects a renderer.
type Format string

const (
	FormatTree Format = "tree"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts tree, json, yaml and yml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tree":
		return FormatTree, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want tree, json or yaml)", s)
	}
}

// Options tune rendering.
type Options struct {
	// ShowSource adds file:line of each handler.
	ShowSource bool
}

// Document is the serialized form of a snapshot. Counts are spelled out so
// consumers do not have to recompute them.
type Document struct {
	ID          string          `json:"id" yaml:"id"`
	CompletedAt string          `json:"completedAt" yaml:"completedAt"`
	TotalCount  int             `json:"totalCount" yaml:"totalCount"`
	Skipped     int             `json:"skipped" yaml:"skipped"`
	Modules     []ModuleSection `json:"modules" yaml:"modules"`
}

// ModuleSection is one module group of a Document.
type ModuleSection struct {
	ModuleID  string          `json:"moduleId" yaml:"moduleId"`
	Name      string          `json:"name" yaml:"name"`
	Count     int             `json:"count" yaml:"count"`
	Endpoints []EndpointEntry `json:"endpoints" yaml:"endpoints"`
}

// EndpointEntry is one endpoint of a Document.
type EndpointEntry struct {
	Methods []string `json:"methods" yaml:"methods"`
	Path    string   `json:"path" yaml:"path"`
	Handler string   `json:"handler" yaml:"handler"`
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// NewDocument converts a snapshot. A nil snapshot yields an empty document.
func NewDocument(r *endpoint.ScanResult, opts Options) Document {
	doc := Document{Modules: []ModuleSection{}}
	if r == nil {
		return doc
	}
	doc.ID = r.ID
	if !r.CompletedAt.IsZero() {
		doc.CompletedAt = r.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	doc.TotalCount = r.TotalCount
	doc.Skipped = r.Skipped

	for _, g := range r.Groups {
		sec := ModuleSection{
			ModuleID:  g.ModuleID,
			Name:      g.Name,
			Count:     g.Count(),
			Endpoints: make([]EndpointEntry, 0, len(g.Endpoints)),
		}
		for _, ep := range g.Endpoints {
			entry := EndpointEntry{
				Methods: methodNames(ep),
				Path:    ep.Path,
				Handler: ep.Handler,
			}
			if opts.ShowSource {
				entry.Source = sourceLocation(ep)
			}
			sec.Endpoints = append(sec.Endpoints, entry)
		}
		doc.Modules = append(doc.Modules, sec)
	}
	return doc
}

// Write renders r to w in the given format.
func Write(w io.Writer, format Format, r *endpoint.ScanResult, opts Options) error {
	switch format {
	case FormatJSON:
		data, err := EncodeJSON(NewDocument(r, opts))
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(r, opts)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, RenderTree(r, opts)+"\n")
		return err
	}
}

// EncodeJSON marshals v with two-space indentation and without HTML escaping,
// so path templates such as /a?b=<c> stay readable.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func methodNames(ep endpoint.Endpoint) []string {
	if len(ep.Methods) == 0 {
		return []string{"ANY"}
	}
	out := make([]string, len(ep.Methods))
	for i, m := range ep.Methods {
		out[i] = string(m)
	}
	return out
}

func sourceLocation(ep endpoint.Endpoint) string {
	file, line, ok := ep.SourceRef.Location()
	if !ok {
		return string(ep.SourceRef)
	}
	return fmt.Sprintf("%s:%d", file, line)
}
