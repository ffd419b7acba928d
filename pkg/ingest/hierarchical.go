package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// LoadHierarchical walks the directory tree for .zarray and .zgroup
// documents with optional .zattrs. Root .zattrs become the global attributes.
func LoadHierarchical(fsys fs.FS) (*metadata.ZarrMetadata, error) {
	md := metadata.New()

	var walk func(dir, key string) error
	walk = func(dir, key string) error {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", dir, err)
		}

		var hasArray, hasGroup bool
		var subdirs []string
		for _, e := range entries {
			name := e.Name()
			switch {
			case name == ZArrayFile:
				hasArray = true
			case name == ZGroupFile:
				hasGroup = true
			case e.IsDir() && !strings.HasPrefix(name, "."):
				subdirs = append(subdirs, name)
			}
		}

		switch {
		case hasArray:
			v, err := readArrayV2(fsys, dir, key)
			if err != nil {
				return err
			}
			md.Variables[key] = v
			// Chunk directories of nested-separator arrays hold no metadata.
			return nil
		case hasGroup:
			g, err := readGroupV2(fsys, dir, key)
			if err != nil {
				return err
			}
			if key == "" {
				md.RootGroup = g
			} else {
				md.Groups[key] = g
			}
		}

		for _, name := range subdirs {
			if err := walk(path.Join(dir, name), joinKey(key, name)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(".", ""); err != nil {
		return nil, err
	}

	attrs, err := readAttrs(fsys, ZAttrsFile)
	if err != nil {
		return nil, err
	}
	md.GlobalAttributes = attrs
	md.RootGroup.Attributes = attrs

	if len(md.Variables) == 0 && len(md.Groups) == 0 {
		return nil, ErrNotStore
	}

	linkChildren(md)
	md.InferDimensions()
	return md, nil
}

func readArrayV2(fsys fs.FS, dir, key string) (*metadata.Variable, error) {
	p := path.Join(dir, ZArrayFile)
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	a, err := ParseArrayV2(data)
	if err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}
	attrs, err := readAttrs(fsys, path.Join(dir, ZAttrsFile))
	if err != nil {
		return nil, err
	}
	return a.Variable(key, attrs), nil
}

func readGroupV2(fsys fs.FS, dir, key string) (*metadata.Group, error) {
	p := path.Join(dir, ZGroupFile)
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	var zg struct {
		ZarrFormat int `json:"zarr_format"`
	}
	if err := json.Unmarshal(data, &zg); err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}
	attrs, err := readAttrs(fsys, path.Join(dir, ZAttrsFile))
	if err != nil {
		return nil, err
	}
	return newGroup(key, attrs), nil
}

func newGroup(key string, attrs metadata.Attributes) *metadata.Group {
	if key == "" {
		return &metadata.Group{Name: "/", Path: "/", Attributes: attrs}
	}
	return &metadata.Group{Name: metadata.NameFromPath(key), Path: key, Attributes: attrs}
}

// readAttrs returns empty attributes when the document is absent.
func readAttrs(fsys fs.FS, p string) (metadata.Attributes, error) {
	data, err := fs.ReadFile(fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return metadata.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	var attrs metadata.Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}
	return attrs, nil
}
