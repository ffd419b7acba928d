// ABOUTME: 2-D slice selection over an N-dimensional variable
// ABOUTME: Validates plot dimensions and fixed indices, produces chunk ranges

package plot

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/chunk"
	"github.com/nainya/zarrdump/pkg/metadata"
)

// Selection is a validated 2-D view of a variable. Ranges covers every axis;
// the two plotted axes span their full length and every other axis one index.
type Selection struct {
	DimY    string
	DimX    string
	Height  int
	Width   int
	StrideY int
	StrideX int
	Ranges  []chunk.Range
}

// At returns the value at (row, col) of data read with s.Ranges.
func (s *Selection) At(data []float64, row, col int) float64 {
	return data[row*s.StrideY+col*s.StrideX]
}

// Rows reshapes data into Height rows of Width values.
func (s *Selection) Rows(data []float64) [][]float64 {
	rows := make([][]float64, s.Height)
	for r := range rows {
		rows[r] = make([]float64, s.Width)
		for c := range rows[r] {
			rows[r][c] = s.At(data, r, c)
		}
	}
	return rows
}

// ParseDims parses "dim_y,dim_x".
func ParseDims(raw string) (y, x string, err error) {
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid --dims '%s': expected 'dim_y,dim_x' (two comma-separated dimension names)", raw)
	}
	return parts[0], parts[1], nil
}

// ParseSlices parses repeated "dim=index" values.
func ParseSlices(values []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(values))
	for _, raw := range values {
		name, idx, ok := strings.Cut(raw, "=")
		name, idx = strings.TrimSpace(name), strings.TrimSpace(idx)
		if !ok || name == "" || idx == "" {
			return nil, fmt.Errorf("invalid --slice '%s': expected 'dim=index'", raw)
		}
		n, err := strconv.ParseUint(idx, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid index in --slice '%s': expected an integer: %w", raw, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate --slice provided for dimension '%s'", name)
		}
		out[name] = n
	}
	return out, nil
}

// ChooseDims picks the plotted pair for v: the summary's suggestion when v
// has both dimensions, else v's last two dimensions.
func ChooseDims(v *metadata.Variable, summary *cf.Summary) (y, x string, err error) {
	names := dimensionNames(v)
	if len(names) < 2 {
		return "", "", fmt.Errorf("cannot plot variable '%s' because it has %d dimensions (need at least 2)", v.DisplayPath(), len(names))
	}
	if summary != nil && summary.PlotDims != nil {
		py, px := summary.PlotDims.Y, summary.PlotDims.X
		if slices.Contains(names, py) && slices.Contains(names, px) {
			return py, px, nil
		}
	}
	return names[len(names)-2], names[len(names)-1], nil
}

// BuildSelection validates a plot request against v.
func BuildSelection(v *metadata.Variable, dimY, dimX string, fixed map[string]uint64) (*Selection, error) {
	label := v.DisplayPath()
	if v.Order != "C" {
		return nil, fmt.Errorf("plotting only supports C-order arrays (order='C'); variable '%s' has order='%s'", label, v.Order)
	}
	if len(v.Shape) < 2 {
		return nil, fmt.Errorf("cannot plot variable '%s' because it has %d dimensions (need at least 2)", label, len(v.Shape))
	}

	names := dimensionNames(v)
	available := strings.Join(names, ", ")
	for _, key := range sortedKeys(fixed) {
		if !slices.Contains(names, key) {
			return nil, fmt.Errorf("unknown dimension '%s' in --slice for variable '%s'; available dimensions: %s", key, label, available)
		}
	}
	_, fy := fixed[dimY]
	_, fx := fixed[dimX]
	if fy || fx {
		return nil, fmt.Errorf("do not provide --slice for plotted dimensions ('%s' and '%s')", dimY, dimX)
	}

	yi := slices.Index(names, dimY)
	if yi < 0 {
		return nil, fmt.Errorf("unknown y dimension '%s' for variable '%s'; available dimensions: %s", dimY, label, available)
	}
	xi := slices.Index(names, dimX)
	if xi < 0 {
		return nil, fmt.Errorf("unknown x dimension '%s' for variable '%s'; available dimensions: %s", dimX, label, available)
	}
	if yi == xi {
		return nil, errors.New("--dims must name two different dimensions")
	}

	var missing []string
	for i, name := range names {
		if i == yi || i == xi {
			continue
		}
		if _, ok := fixed[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing --slice for dimensions: %s; provide an index for every dimension not plotted", strings.Join(missing, ", "))
	}

	ranges := make([]chunk.Range, len(names))
	subset := make([]uint64, len(names))
	for i, name := range names {
		size := v.Shape[i]
		if size == 0 {
			return nil, fmt.Errorf("dimension '%s' has length 0 in variable '%s' (cannot plot)", name, label)
		}
		if i == yi || i == xi {
			ranges[i] = chunk.Range{Start: 0, End: size}
			subset[i] = size
			continue
		}
		idx := fixed[name]
		if idx >= size {
			return nil, fmt.Errorf("index %d out of bounds for dimension '%s' (valid range: 0..%d)", idx, name, size-1)
		}
		ranges[i] = chunk.Range{Start: idx, End: idx + 1}
		subset[i] = 1
	}

	strides, err := cStrides(subset)
	if err != nil {
		return nil, err
	}
	return &Selection{
		DimY:    dimY,
		DimX:    dimX,
		Height:  int(subset[yi]),
		Width:   int(subset[xi]),
		StrideY: strides[yi],
		StrideX: strides[xi],
		Ranges:  ranges,
	}, nil
}

func dimensionNames(v *metadata.Variable) []string {
	if len(v.Dimensions) == len(v.Shape) && len(v.Dimensions) > 0 {
		names := make([]string, len(v.Dimensions))
		for i, d := range v.Dimensions {
			names[i] = d.Name
		}
		return names
	}
	return metadata.AxisNames(v)
}

func cStrides(shape []uint64) ([]int, error) {
	strides := make([]int, len(shape))
	stride := uint64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		if stride > math.MaxInt {
			return nil, errors.New("array subset is too large to index")
		}
		strides[i] = int(stride)
		hi, lo := bits.Mul64(stride, shape[i])
		if hi != 0 {
			return nil, errors.New("array subset is too large to index")
		}
		stride = lo
	}
	if stride > math.MaxInt {
		return nil, errors.New("array subset is too large to index")
	}
	return strides, nil
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
