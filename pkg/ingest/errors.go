// Package ingest builds the metadata model from the three Zarr encodings
package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStore indicates the directory holds no arrays or groups
	ErrNotStore = errors.New("ingest: no Zarr arrays or groups found")

	// ErrUnsupportedNode indicates a zarr.json with an unknown node_type
	ErrUnsupportedNode = errors.New("ingest: unsupported node type")
)

// ParseError reports a metadata document that exists but cannot be decoded.
// It is fatal: no fallback strategy is tried.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ingest: invalid metadata at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
