package ingest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/nainya/zarrdump/pkg/metadata"
)

type consolidatedDoc struct {
	Format   int                        `json:"zarr_consolidated_format"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// LoadConsolidated builds the model from a v2 .zmetadata index.
func LoadConsolidated(fsys fs.FS) (*metadata.ZarrMetadata, error) {
	data, err := fs.ReadFile(fsys, ZMetadataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ZMetadataFile, err)
	}

	var doc consolidatedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: ZMetadataFile, Err: err}
	}
	if doc.Metadata == nil {
		return nil, &ParseError{Path: ZMetadataFile, Err: fmt.Errorf("missing \"metadata\" object")}
	}

	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make(map[string]metadata.Attributes)
	for _, k := range keys {
		p, ok := splitKey(k, ZAttrsFile)
		if !ok {
			continue
		}
		var a metadata.Attributes
		if err := json.Unmarshal(doc.Metadata[k], &a); err != nil {
			return nil, &ParseError{Path: ZMetadataFile + ":" + k, Err: err}
		}
		attrs[p] = a
	}

	md := metadata.New()
	for _, k := range keys {
		if p, ok := splitKey(k, ZArrayFile); ok {
			a, err := ParseArrayV2(doc.Metadata[k])
			if err != nil {
				return nil, &ParseError{Path: ZMetadataFile + ":" + k, Err: err}
			}
			md.Variables[p] = a.Variable(p, attrs[p])
			continue
		}
		if p, ok := splitKey(k, ZGroupFile); ok {
			if p == "" {
				continue
			}
			g := attrs[p]
			if g == nil {
				g = metadata.Attributes{}
			}
			md.Groups[p] = newGroup(p, g)
		}
	}

	if root, ok := attrs[""]; ok {
		md.GlobalAttributes = root
		md.RootGroup.Attributes = root
	}

	if len(md.Variables) == 0 && len(md.Groups) == 0 {
		return nil, ErrNotStore
	}

	linkChildren(md)
	md.InferDimensions()
	return md, nil
}

// splitKey returns the node path of a consolidated key ending in name.
func splitKey(key, name string) (string, bool) {
	if key == name {
		return "", true
	}
	return strings.CutSuffix(key, "/"+name)
}
