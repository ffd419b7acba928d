// ABOUTME: Dimension inference across all variables of a store
// ABOUTME: Collects per-name appearances, then rewrites each variable's axes

package metadata

import "fmt"

// Attribute names that carry per-axis dimension names.
const (
	AttrArrayDimensions = "_ARRAY_DIMENSIONS"
	AttrDimensionNames  = "dimension_names"
)

// AxisNames returns the dimension name of every axis of v. Names come from
// _ARRAY_DIMENSIONS, else dimension_names; axis i falls back to "dim_<i>"
// when no usable string entry exists for it.
func AxisNames(v *Variable) []string {
	var declared Array
	for _, key := range []string{AttrArrayDimensions, AttrDimensionNames} {
		if arr, ok := v.Attributes[key].(Array); ok && len(arr) > 0 {
			declared = arr
			break
		}
	}

	names := make([]string, len(v.Shape))
	for i := range v.Shape {
		if i < len(declared) {
			if s, ok := declared[i].(String); ok && s != "" {
				names[i] = string(s)
				continue
			}
		}
		names[i] = fmt.Sprintf("dim_%d", i)
	}
	return names
}

// InferDimensions rebuilds Dimensions and every variable's Dimensions
// slice from shapes and dimension-name attributes. A dimension is
// unlimited when any appearance has size 0 or sizes disagree.
func (m *ZarrMetadata) InferDimensions() {
	m.Dimensions = make(map[string]*DimensionInfo)

	paths := m.VariablePaths()
	axes := make(map[string][]string, len(paths))

	for _, path := range paths {
		v := m.Variables[path]
		names := AxisNames(v)
		axes[path] = names

		for i, name := range names {
			size := v.Shape[i]
			info, ok := m.Dimensions[name]
			if !ok {
				info = &DimensionInfo{Name: name}
				m.Dimensions[name] = info
			}
			info.Appearances = append(info.Appearances, Appearance{VariablePath: path, Size: size})
			if size > info.MaxLength {
				info.MaxLength = size
			}
		}
	}

	for _, info := range m.Dimensions {
		info.IsUnlimited = unlimited(info.Appearances)
	}

	for _, path := range paths {
		v := m.Variables[path]
		names := axes[path]
		dims := make([]Dimension, len(names))
		for i, name := range names {
			dims[i] = Dimension{
				Name:        name,
				Size:        v.Shape[i],
				IsUnlimited: m.Dimensions[name].IsUnlimited,
			}
		}
		v.Dimensions = dims
	}
}

func unlimited(apps []Appearance) bool {
	for _, a := range apps {
		if a.Size == 0 {
			return true
		}
	}
	for _, a := range apps[1:] {
		if a.Size != apps[0].Size {
			return true
		}
	}
	return false
}
