package output

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"routemap/internal/endpoint"
)

// URLEntry pairs an endpoint with its composed URL.
type URLEntry struct {
	Module  string   `json:"module" yaml:"module"`
	Methods []string `json:"methods" yaml:"methods"`
	URL     string   `json:"url" yaml:"url"`
	Handler string   `json:"handler" yaml:"handler"`
}

// NewURLEntry builds the entry for ep.
func NewURLEntry(ep endpoint.Endpoint, url string) URLEntry {
	return URLEntry{
		Module:  ep.ModuleName,
		Methods: methodNames(ep),
		URL:     url,
		Handler: ep.Handler,
	}
}

// WriteURLs renders entries, one per line in tree format.
func WriteURLs(w io.Writer, format Format, entries []URLEntry) error {
	if entries == nil {
		entries = []URLEntry{}
	}
	switch format {
	case FormatJSON:
		data, err := EncodeJSON(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	width := 0
	for _, e := range entries {
		if n := len(strings.Join(e.Methods, "|")); n > width {
			width = n
		}
	}
	var b strings.Builder
	for _, e := range entries {
		label := strings.Join(e.Methods, "|")
		b.WriteString(MethodStyle.Render(label))
		b.WriteString(strings.Repeat(" ", width-len(label)))
		b.WriteString("  ")
		b.WriteString(e.URL)
		b.WriteString("  ")
		b.WriteString(MutedStyle.Render(e.Handler))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
