package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// chunkDir is the default v3 chunk key prefix directory.
const chunkDir = "c"

// LoadV3 builds the model from a v3 store. Embedded consolidated metadata
// in the root zarr.json is used when present; otherwise child directories
// are scanned for zarr.json documents. The boolean reports whether the
// consolidated path was taken.
func LoadV3(fsys fs.FS) (*metadata.ZarrMetadata, bool, error) {
	root, err := readNodeV3(fsys, ZarrJSONFile)
	if err != nil {
		return nil, false, err
	}

	md := metadata.New()
	md.ZarrFormat = 3
	md.GlobalAttributes = root.Attributes
	md.RootGroup.Attributes = root.Attributes

	switch root.NodeType {
	case NodeArray:
		md.Variables[""] = root.Variable("")
	case NodeGroup, "":
	default:
		return nil, false, unsupportedNode(ZarrJSONFile, root.NodeType)
	}

	consolidated := root.ConsolidatedMetadata != nil && root.ConsolidatedMetadata.Metadata != nil
	if consolidated {
		entries := root.ConsolidatedMetadata.Metadata
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			loc := ZarrJSONFile + ":" + k
			node, err := ParseNodeV3(entries[k])
			if err != nil {
				return nil, false, &ParseError{Path: loc, Err: err}
			}
			key := strings.Trim(k, "/")
			if err := addNodeV3(md, loc, key, node); err != nil {
				return nil, false, err
			}
		}
	} else if root.NodeType != NodeArray {
		if err := scanV3(fsys, ".", "", md); err != nil {
			return nil, false, err
		}
	}

	if len(md.Variables) == 0 && len(md.Groups) == 0 {
		return nil, false, ErrNotStore
	}

	linkChildren(md)
	md.InferDimensions()
	return md, consolidated, nil
}

func scanV3(fsys fs.FS, dir, key string, md *metadata.ZarrMetadata) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || name == chunkDir {
			continue
		}

		childDir := path.Join(dir, name)
		childKey := joinKey(key, name)
		loc := path.Join(childDir, ZarrJSONFile)

		node, err := readNodeV3(fsys, loc)
		if errors.Is(err, fs.ErrNotExist) {
			if err := scanV3(fsys, childDir, childKey, md); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if err := addNodeV3(md, loc, childKey, node); err != nil {
			return err
		}
		if node.NodeType == NodeGroup {
			if err := scanV3(fsys, childDir, childKey, md); err != nil {
				return err
			}
		}
	}
	return nil
}

func addNodeV3(md *metadata.ZarrMetadata, loc, key string, node *NodeV3) error {
	switch node.NodeType {
	case NodeArray:
		md.Variables[key] = node.Variable(key)
	case NodeGroup:
		md.Groups[key] = newGroup(key, node.Attributes)
	default:
		return unsupportedNode(loc, node.NodeType)
	}
	return nil
}

func readNodeV3(fsys fs.FS, p string) (*NodeV3, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	node, err := ParseNodeV3(data)
	if err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}
	return node, nil
}

func unsupportedNode(loc, nodeType string) error {
	return &ParseError{Path: loc, Err: fmt.Errorf("%w %q", ErrUnsupportedNode, nodeType)}
}
