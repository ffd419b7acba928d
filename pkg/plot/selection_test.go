package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/chunk"
	"github.com/nainya/zarrdump/pkg/metadata"
)

func makeVar(shape []uint64, dims ...string) *metadata.Variable {
	v := &metadata.Variable{Name: "v", Path: "v", DType: "<f4", Shape: shape, Order: "C", Attributes: metadata.Attributes{}}
	for i, d := range dims {
		v.Dimensions = append(v.Dimensions, metadata.Dimension{Name: d, Size: shape[i]})
	}
	return v
}

func TestParseDims(t *testing.T) {
	y, x, err := ParseDims(" lat , lon ")
	require.NoError(t, err)
	assert.Equal(t, "lat", y)
	assert.Equal(t, "lon", x)

	for _, raw := range []string{"lat", "lat,lon,time", "", ",lon"} {
		_, _, err := ParseDims(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseSlices(t *testing.T) {
	got, err := ParseSlices([]string{"time=0", " level = 3 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"time": 0, "level": 3}, got)

	for _, raw := range []string{"time", "time=", "=0", "time=-1", "time=x"} {
		_, err := ParseSlices([]string{raw})
		assert.Error(t, err, raw)
	}

	_, err = ParseSlices([]string{"time=0", "time=1"})
	assert.ErrorContains(t, err, "duplicate --slice provided for dimension 'time'")
}

func TestBuildSelectionLatLonWithTimeSlice(t *testing.T) {
	v := makeVar([]uint64{365, 180, 360}, "time", "lat", "lon")
	sel, err := BuildSelection(v, "lat", "lon", map[string]uint64{"time": 7})
	require.NoError(t, err)

	assert.Equal(t, 180, sel.Height)
	assert.Equal(t, 360, sel.Width)
	assert.Equal(t, 360, sel.StrideY)
	assert.Equal(t, 1, sel.StrideX)
	assert.Equal(t, []chunk.Range{{Start: 7, End: 8}, {Start: 0, End: 180}, {Start: 0, End: 360}}, sel.Ranges)
}

func TestBuildSelectionTransposed(t *testing.T) {
	v := makeVar([]uint64{4, 3}, "x", "y")
	sel, err := BuildSelection(v, "y", "x", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, sel.Height)
	assert.Equal(t, 4, sel.Width)
	assert.Equal(t, 1, sel.StrideY)
	assert.Equal(t, 3, sel.StrideX)

	// data is x-major: value = 10*x + y
	data := make([]float64, 12)
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			data[x*3+y] = float64(10*x + y)
		}
	}
	rows := sel.Rows(data)
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{0, 10, 20, 30}, rows[0])
	assert.Equal(t, []float64{2, 12, 22, 32}, rows[2])
}

func TestBuildSelectionErrors(t *testing.T) {
	v := makeVar([]uint64{365, 180, 360}, "time", "lat", "lon")

	tests := []struct {
		name  string
		v     *metadata.Variable
		y, x  string
		fixed map[string]uint64
		want  string
	}{
		{"missing slice", v, "lat", "lon", nil, "missing --slice for dimensions: time"},
		{"unknown slice dim", v, "lat", "lon", map[string]uint64{"time": 0, "depth": 1}, "unknown dimension 'depth' in --slice"},
		{"slice on plotted dim", v, "lat", "lon", map[string]uint64{"time": 0, "lat": 1}, "do not provide --slice for plotted dimensions"},
		{"unknown y", v, "y", "lon", map[string]uint64{"time": 0}, "unknown y dimension 'y'"},
		{"unknown x", v, "lat", "x", map[string]uint64{"time": 0}, "unknown x dimension 'x'"},
		{"same dims", v, "lat", "lat", map[string]uint64{"time": 0}, "two different dimensions"},
		{"out of bounds", v, "lat", "lon", map[string]uint64{"time": 365}, "index 365 out of bounds for dimension 'time' (valid range: 0..364)"},
		{"one dimension", makeVar([]uint64{5}, "n"), "n", "n", nil, "because it has 1 dimensions"},
		{"zero length", makeVar([]uint64{0, 4}, "a", "b"), "a", "b", nil, "dimension 'a' has length 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSelection(tt.v, tt.y, tt.x, tt.fixed)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBuildSelectionRejectsFortranOrder(t *testing.T) {
	v := makeVar([]uint64{2, 2}, "a", "b")
	v.Order = "F"
	_, err := BuildSelection(v, "a", "b", nil)
	assert.ErrorContains(t, err, "order='F'")
}

func TestBuildSelectionFallsBackToPositionalNames(t *testing.T) {
	v := makeVar([]uint64{2, 3})
	sel, err := BuildSelection(v, "dim_0", "dim_1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Height)
	assert.Equal(t, 3, sel.Width)
}

func TestChooseDims(t *testing.T) {
	v := makeVar([]uint64{2, 3, 4}, "time", "lat", "lon")

	y, x, err := ChooseDims(v, &cf.Summary{PlotDims: &cf.DimPair{Y: "lat", X: "lon"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, []string{y, x})

	v = makeVar([]uint64{2, 3, 4}, "band", "row", "col")
	y, x, err = ChooseDims(v, &cf.Summary{PlotDims: &cf.DimPair{Y: "lat", X: "lon"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"row", "col"}, []string{y, x})

	y, x, err = ChooseDims(v, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"row", "col"}, []string{y, x})

	_, _, err = ChooseDims(makeVar([]uint64{4}, "n"), nil)
	assert.Error(t, err)
}
