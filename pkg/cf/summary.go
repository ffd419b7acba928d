package cf

import (
	"math/bits"
	"slices"
	"sort"
	"strings"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// MaxCandidates caps Summary.CandidateDataVars.
const MaxCandidates = 10

// AxisAssignment is the chosen coordinate for one axis letter.
type AxisAssignment struct {
	Axis     rune
	Dim      string
	CoordVar string
}

// DimPair is an ordered (y, x) pair of dimension names.
type DimPair struct {
	Y string
	X string
}

// Summary describes a dataset's axes and suggests how to view it.
type Summary struct {
	Conventions       *string
	Axes              []AxisAssignment
	PlotDims          *DimPair
	SliceDims         []string
	CandidateDataVars []string
}

// Axis returns the assignment for a letter, if any.
func (s *Summary) Axis(letter rune) (AxisAssignment, bool) {
	for _, a := range s.Axes {
		if a.Axis == letter {
			return a, true
		}
	}
	return AxisAssignment{}, false
}

// Summarize classifies coordinate variables into T, Z, Y and X axes and
// ranks the remaining variables as plotting candidates.
func Summarize(md *metadata.ZarrMetadata) *Summary {
	s := &Summary{}
	if v, ok := conventions(md); ok {
		if str, ok := v.(metadata.String); ok {
			c := string(str)
			s.Conventions = &c
		}
	}

	coords := coordinateVariables(md)
	isCoord := make(map[string]bool, len(coords))
	isBounds := make(map[string]bool)
	var candidates []AxisAssignment
	for _, v := range coords {
		isCoord[v.Path] = true
		if name, ok := v.Attributes.String("bounds"); ok {
			if b, ok := md.Resolve(v.Path, name); ok {
				isBounds[b.Path] = true
			}
		}
		candidates = append(candidates, AxisAssignment{
			Axis:     describe(v).axisLetter(),
			Dim:      v.Dimensions[0].Name,
			CoordVar: v.DisplayPath(),
		})
	}

	for _, letter := range []rune{'T', 'Z', 'Y', 'X'} {
		if best, ok := bestAxis(letter, candidates); ok {
			s.Axes = append(s.Axes, best)
		}
	}

	y, okY := s.axisDim('Y', md, "lat", "latitude", "y")
	x, okX := s.axisDim('X', md, "lon", "longitude", "x")
	if okY && okX {
		s.PlotDims = &DimPair{Y: y, X: x}
	}

	if t, ok := s.axisDim('T', md, "time", "t"); ok {
		s.SliceDims = append(s.SliceDims, t)
	}
	if z, ok := s.axisDim('Z', md, "lev", "level", "plev", "depth", "z"); ok && !slices.Contains(s.SliceDims, z) {
		s.SliceDims = append(s.SliceDims, z)
	}
	if s.PlotDims != nil {
		kept := s.SliceDims[:0]
		for _, d := range s.SliceDims {
			if d != s.PlotDims.Y && d != s.PlotDims.X {
				kept = append(kept, d)
			}
		}
		s.SliceDims = kept
	}

	s.CandidateDataVars = rankCandidates(md, isCoord, isBounds)
	return s
}

func (s *Summary) axisDim(letter rune, md *metadata.ZarrMetadata, fallback ...string) (string, bool) {
	if a, ok := s.Axis(letter); ok {
		return a.Dim, true
	}
	return md.FindDimension(fallback...)
}

type dataCandidate struct {
	name  string
	elems uint64
	ndim  int
}

func rankCandidates(md *metadata.ZarrMetadata, isCoord, isBounds map[string]bool) []string {
	var all []dataCandidate
	for _, p := range md.VariablePaths() {
		v := md.Variables[p]
		if isCoord[p] || isBounds[p] || v.Attributes.Has("grid_mapping_name") {
			continue
		}
		all = append(all, dataCandidate{name: v.DisplayPath(), elems: elementCount(v.Shape), ndim: len(v.Shape)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.elems != b.elems {
			return a.elems > b.elems
		}
		if a.ndim != b.ndim {
			return a.ndim > b.ndim
		}
		return a.name < b.name
	})

	var out []string
	for _, c := range all {
		if c.elems == 0 {
			continue
		}
		out = append(out, c.name)
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}

// elementCount multiplies the shape, saturating at the uint64 maximum.
func elementCount(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return ^uint64(0)
		}
		n = lo
	}
	return n
}

func bestAxis(letter rune, candidates []AxisAssignment) (AxisAssignment, bool) {
	var best AxisAssignment
	found := false
	for _, c := range candidates {
		if c.Axis != letter {
			continue
		}
		if !found || axisLess(letter, c, best) {
			best, found = c, true
		}
	}
	return best, found
}

// axisLess orders candidates by name preference, then group depth, then path.
func axisLess(letter rune, a, b AxisAssignment) bool {
	pa, pb := axisPreference(letter, a.Dim), axisPreference(letter, b.Dim)
	if pa != pb {
		return pa < pb
	}
	da, db := strings.Count(a.CoordVar, "/"), strings.Count(b.CoordVar, "/")
	if da != db {
		return da < db
	}
	return a.CoordVar < b.CoordVar
}

func axisPreference(letter rune, dim string) int {
	d := strings.ToLower(dim)
	switch letter {
	case 'T':
		if d == "time" {
			return 0
		}
		return 1
	case 'Y':
		switch d {
		case "lat", "latitude":
			return 0
		case "y":
			return 1
		}
		return 2
	case 'X':
		switch d {
		case "lon", "longitude":
			return 0
		case "x":
			return 1
		}
		return 2
	case 'Z':
		switch d {
		case "lev", "level", "plev", "depth":
			return 0
		}
		return 1
	}
	return 1
}
