package cli

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nainya/zarrdump/pkg/metadata"
)

func TestNetcdfType(t *testing.T) {
	tests := map[string]string{
		"<f8":  "double",
		">f4":  "float",
		"<i2":  "short",
		"|i1":  "byte",
		"|u1":  "ubyte",
		"<u8":  "uint64",
		"<c16": "complex128",
		"|S10": "char",
		"|U4":  "char",
		"<U1":  "char",
		"?":    "bool",
		"|f8":  "|f8",
		"<M8":  "<M8",
		"":     "",
	}
	for dtype, want := range tests {
		assert.Equal(t, want, netcdfType(dtype), "dtype %q", dtype)
	}
}

func TestFormatCoordinate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{-3, "-3"},
		{1.5, "1.5"},
		{1e7, "10000000"},
		{1.5e12, "1.5e12"},
		{1234567.5, "1.2345675e6"},
		{0.0001, "1e-4"},
		{-2.5e-7, "-2.5e-7"},
		{0.25, "0.25"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCoordinate(tt.in), "value %v", tt.in)
	}
}

func TestCoordinateValuesWrap(t *testing.T) {
	d := newDumper(nil, newPalette(false))

	data := make([]float64, 10)
	for i := range data {
		data[i] = float64(i)
	}
	assert.Equal(t, "0, 1, 2, 3, 4, 5, 6, 7, \n    8, 9", d.coordinateValues(data))
	assert.Equal(t, "42", d.coordinateValues([]float64{42}))
	assert.Equal(t, "<no data>", d.coordinateValues(nil))
}

func TestWrapValuesLineWidth(t *testing.T) {
	data := []float64{0.123456789012, 0.223456789012, 0.323456789012, 0.423456789012, 0.523456789012, 0.623456789012}
	lines := wrapValues(data)
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), lineWidth)
	}
}

func TestAttributeValue(t *testing.T) {
	d := newDumper(nil, newPalette(false))

	tests := []struct {
		name string
		in   metadata.Value
		want string
	}{
		{"string", metadata.String("plain"), `"plain"`},
		{"escaped string", metadata.String("a\"b\nc"), `"a\"b\nc"`},
		{"number", metadata.Number(0.5), "0.5"},
		{"integral number", metadata.Number(2), "2"},
		{"integer", metadata.Integer(-7), "-7"},
		{"boolean", metadata.Boolean(true), "true"},
		{"null", metadata.Null{}, "null"},
		{"object", metadata.Object{"k": metadata.Integer(1)}, "{...}"},
		{"short array", metadata.Array{metadata.String("x"), metadata.Integer(1)}, `["x", 1]`},
		{"long array", metadata.Array{
			metadata.Integer(1), metadata.Integer(2), metadata.Integer(3),
			metadata.Integer(4), metadata.Integer(5), metadata.Integer(6),
		}, "[1, 2, 3, 4, 5, ...]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.value(tt.in))
		})
	}
}

func TestVariableNotFoundShowsRoot(t *testing.T) {
	md := metadata.New()
	md.Variables[""] = &metadata.Variable{Name: metadata.RootName}
	md.Variables["a"] = &metadata.Variable{Name: "a"}

	err := variableNotFound("zz", md)
	assert.EqualError(t, err, "variable 'zz' not found in store. Available variables (first 2): root, a")
}
