//go:build !cgo

package extract

import (
	"context"

	"routemap/internal/endpoint"
)

// Extractor is unavailable without cgo; every call returns ErrNoCGO.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsAvailable reports whether tree-sitter extraction is compiled in.
func IsAvailable() bool {
	return false
}

// ExtractFile returns ErrNoCGO.
func (e *Extractor) ExtractFile(ctx context.Context, absPath, relPath string) ([]endpoint.Declaration, error) {
	return nil, ErrNoCGO
}

// ExtractSource returns ErrNoCGO.
func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang endpoint.Language) ([]endpoint.Declaration, error) {
	return nil, ErrNoCGO
}
