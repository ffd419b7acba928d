// ABOUTME: Unified metadata model for Zarr v2 and v3 stores
// ABOUTME: Built once by an ingestor, read-only after dimension inference

package metadata

import "sort"

// RootName is how the root array (empty path) is displayed.
const RootName = "root"

// Dimension is one axis of a variable after inference.
type Dimension struct {
	Name        string
	Size        uint64
	IsUnlimited bool
}

// Appearance records one variable's use of a dimension.
type Appearance struct {
	VariablePath string
	Size         uint64
}

// DimensionInfo aggregates every appearance of a dimension name.
type DimensionInfo struct {
	Name        string
	MaxLength   uint64
	IsUnlimited bool
	Appearances []Appearance
}

// Variable is an array node.
type Variable struct {
	Name       string
	Path       string
	DType      string
	Shape      []uint64
	Chunks     []uint64
	Compressor *string
	FillValue  Value // nil when the store declares none
	Order      string
	Filters    []string
	Attributes Attributes
	Dimensions []Dimension
}

// DisplayPath returns the path used in messages; the root array shows as "root".
func (v *Variable) DisplayPath() string {
	if v.Path == "" {
		return RootName
	}
	return v.Path
}

// Group is a group node.
type Group struct {
	Name       string
	Path       string
	Attributes Attributes
	Children   []string
}

// ZarrMetadata is the complete model of one store.
type ZarrMetadata struct {
	ZarrFormat       int
	GlobalAttributes Attributes
	Groups           map[string]*Group
	Variables        map[string]*Variable
	RootGroup        *Group
	Dimensions       map[string]*DimensionInfo
}

// New returns an empty v2 model with a root group.
func New() *ZarrMetadata {
	return &ZarrMetadata{
		ZarrFormat:       2,
		GlobalAttributes: Attributes{},
		Groups:           make(map[string]*Group),
		Variables:        make(map[string]*Variable),
		RootGroup: &Group{
			Name:       "/",
			Path:       "/",
			Attributes: Attributes{},
		},
		Dimensions: make(map[string]*DimensionInfo),
	}
}

// VariablePaths returns variable keys in sorted order.
func (m *ZarrMetadata) VariablePaths() []string {
	paths := make([]string, 0, len(m.Variables))
	for p := range m.Variables {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GroupPaths returns group keys in sorted order.
func (m *ZarrMetadata) GroupPaths() []string {
	paths := make([]string, 0, len(m.Groups))
	for p := range m.Groups {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DimensionNames returns inferred dimension names in sorted order.
func (m *ZarrMetadata) DimensionNames() []string {
	names := make([]string, 0, len(m.Dimensions))
	for n := range m.Dimensions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NameFromPath returns the last path segment, or "root" for the empty path.
func NameFromPath(path string) string {
	if path == "" {
		return RootName
	}
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
