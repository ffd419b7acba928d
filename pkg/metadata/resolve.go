// ABOUTME: Name resolution for cross-variable references
// ABOUTME: Handles bounds, grid_mapping and coordinates lookups

package metadata

import (
	"strings"
)

// Resolve finds the variable named by a reference attribute on the variable
// at fromPath. An exact key match wins; otherwise the name is tried as a
// sibling in fromPath's parent group.
func (m *ZarrMetadata) Resolve(fromPath, name string) (*Variable, bool) {
	if v, ok := m.Variables[name]; ok {
		return v, true
	}
	if i := strings.LastIndex(fromPath, "/"); i >= 0 {
		if v, ok := m.Variables[fromPath[:i]+"/"+name]; ok {
			return v, true
		}
	}
	return nil, false
}

// FindDimension returns the first preferred name that is an inferred
// dimension, checking exact names before case-insensitive matches.
func (m *ZarrMetadata) FindDimension(preferred ...string) (string, bool) {
	for _, want := range preferred {
		if _, ok := m.Dimensions[want]; ok {
			return want, true
		}
	}
	names := m.DimensionNames()
	for _, want := range preferred {
		for _, name := range names {
			if strings.EqualFold(name, want) {
				return name, true
			}
		}
	}
	return "", false
}

// NormalizeVariableKey maps user input to a variable key: "/" and "root"
// name the root array, a leading slash is dropped.
func NormalizeVariableKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "/" || strings.EqualFold(s, RootName) {
		return ""
	}
	return strings.TrimLeft(s, "/")
}
