// ABOUTME: ncdump-style text rendering of store metadata
// ABOUTME: Dimensions, variables, attributes, CF summary and coordinate data

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/chunk"
	"github.com/nainya/zarrdump/pkg/metadata"
)

const (
	maxAttributeItems = 5
	valuesPerLine     = 8
	lineWidth         = 76
)

// netcdfTypes maps Zarr v2 dtype codes, without byte order, to NetCDF names.
var netcdfTypes = map[string]string{
	"i1":  "byte",
	"i2":  "short",
	"i4":  "int",
	"i8":  "int64",
	"u1":  "ubyte",
	"u2":  "ushort",
	"u4":  "uint",
	"u8":  "uint64",
	"f4":  "float",
	"f8":  "double",
	"c8":  "complex64",
	"c16": "complex128",
}

// netcdfType returns the NetCDF-like name of a dtype, or dtype itself.
func netcdfType(dtype string) string {
	if dtype == "?" || dtype == "|b1" {
		return "bool"
	}
	if strings.HasPrefix(dtype, "|S") || strings.HasPrefix(dtype, "|U") || dtype == "<U1" {
		return "char"
	}
	if len(dtype) > 1 && strings.ContainsRune("<>|", rune(dtype[0])) {
		if name, ok := netcdfTypes[dtype[1:]]; ok {
			// single-byte types are the only ones written with '|'
			if dtype[0] != '|' || dtype[1:] == "i1" || dtype[1:] == "u1" {
				return name
			}
		}
	}
	return dtype
}

// dumper writes the metadata listing.
type dumper struct {
	w *bufio.Writer
	p *palette
}

func newDumper(w io.Writer, p *palette) *dumper {
	return &dumper{w: bufio.NewWriter(w), p: p}
}

func (d *dumper) printf(format string, args ...any) {
	fmt.Fprintf(d.w, format, args...)
}

// Dump renders md. When reader is non-nil the values of every coordinate
// variable are appended in a data section.
func (d *dumper) Dump(ctx context.Context, md *metadata.ZarrMetadata, summary *cf.Summary, reader chunk.Reader) error {
	d.printf("%s %s {\n", d.p.keyword.Sprint("zarr"), d.p.plain.Sprint("store"))
	d.dimensions(md)
	d.variables(md)
	d.globals(md)
	d.summary(summary)
	if reader != nil {
		d.coordinateData(ctx, md, reader)
	}
	d.printf("}\n")
	return d.w.Flush()
}

func (d *dumper) dimensions(md *metadata.ZarrMetadata) {
	if len(md.Dimensions) == 0 {
		return
	}
	d.printf("%s\n", d.p.section.Sprint("dimensions:"))
	for _, name := range md.DimensionNames() {
		info := md.Dimensions[name]
		if info.IsUnlimited {
			d.printf("    %s = %s ; %s\n",
				d.p.name.Sprint(name),
				d.p.attr.Sprint("UNLIMITED"),
				d.p.comment.Sprintf("// (%d currently)", info.MaxLength))
			continue
		}
		d.printf("    %s = %s ;\n", d.p.name.Sprint(name), d.p.number.Sprint(info.MaxLength))
	}
}

func (d *dumper) variables(md *metadata.ZarrMetadata) {
	if len(md.Variables) == 0 {
		return
	}
	d.printf("%s\n", d.p.section.Sprint("variables:"))
	for _, path := range md.VariablePaths() {
		v := md.Variables[path]
		name := v.Name
		if path == "" {
			name = metadata.RootName
		}

		dims := make([]string, len(v.Dimensions))
		for i, dim := range v.Dimensions {
			dims[i] = d.p.name.Sprint(dim.Name)
		}
		d.printf("    %s %s(%s) ;\n", d.p.dtype.Sprint(netcdfType(v.DType)), d.p.name.Sprint(name), strings.Join(dims, ", "))

		for _, key := range v.Attributes.Keys() {
			d.printf("        %s:%s = %s ;\n", d.p.name.Sprint(name), d.p.attr.Sprint(key), d.value(v.Attributes[key]))
		}
	}
}

func (d *dumper) globals(md *metadata.ZarrMetadata) {
	if len(md.GlobalAttributes) == 0 {
		return
	}
	d.printf("%s\n", d.p.comment.Sprint("// global attributes:"))
	for _, key := range md.GlobalAttributes.Keys() {
		d.printf("    :%s = %s ;\n", d.p.attr.Sprint(key), d.value(md.GlobalAttributes[key]))
	}
}

func (d *dumper) summary(s *cf.Summary) {
	d.printf("%s\n", d.p.comment.Sprint("// CF summary:"))

	if s.Conventions != nil {
		d.printf("    // Conventions: %s\n", d.p.str.Sprint(*s.Conventions))
	} else {
		d.printf("    // Conventions: <missing>\n")
	}

	if len(s.Axes) == 0 {
		d.printf("    // Axes: <none detected>\n")
	} else {
		d.printf("    // Axes:\n")
		for _, a := range s.Axes {
			d.printf("    //   %s: %s (dim '%s')\n",
				d.p.attr.Sprint(string(a.Axis)), d.p.name.Sprint(a.CoordVar), d.p.name.Sprint(a.Dim))
		}
	}

	if s.PlotDims != nil {
		d.printf("    // Suggested plot dims: %s,%s\n", d.p.name.Sprint(s.PlotDims.Y), d.p.name.Sprint(s.PlotDims.X))
	}
	if len(s.SliceDims) > 0 {
		d.printf("    // Suggested slice dims: %s\n", d.names(s.SliceDims))
	}
	if len(s.CandidateDataVars) > 0 {
		d.printf("    // Candidate data variables: %s\n", d.names(s.CandidateDataVars))
	}
}

func (d *dumper) names(in []string) string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = d.p.name.Sprint(s)
	}
	return strings.Join(out, ", ")
}

// coordinateData prints the 1-D variables indexed by a known dimension.
// Read failures are printed in place of the values.
func (d *dumper) coordinateData(ctx context.Context, md *metadata.ZarrMetadata, reader chunk.Reader) {
	var coords []*metadata.Variable
	for _, path := range md.VariablePaths() {
		v := md.Variables[path]
		if len(v.Dimensions) != 1 {
			continue
		}
		if _, ok := md.Dimensions[v.Dimensions[0].Name]; ok {
			coords = append(coords, v)
		}
	}
	if len(coords) == 0 {
		return
	}

	d.printf("%s\n\n", d.p.section.Sprint("data:"))
	for _, v := range coords {
		data, err := reader.ReadFloat64(ctx, v.Path, []chunk.Range{{Start: 0, End: v.Shape[0]}})
		if err != nil {
			d.printf(" %s = %s ;\n", d.p.name.Sprint(v.Name), d.p.str.Sprintf("<error reading data: %v>", err))
			continue
		}
		d.printf(" %s = %s ;\n\n", d.p.name.Sprint(v.Name), d.coordinateValues(data))
	}
}

func (d *dumper) coordinateValues(data []float64) string {
	if len(data) == 0 {
		return d.p.comment.Sprint("<no data>")
	}
	lines := wrapValues(data)
	for i, line := range lines {
		lines[i] = d.p.number.Sprint(line)
	}
	return strings.Join(lines, ", \n    ")
}

// wrapValues formats data as comma separated lines of at most valuesPerLine
// values and about lineWidth characters.
func wrapValues(data []float64) []string {
	var lines []string
	var cur strings.Builder
	count := 0
	for i, v := range data {
		s := formatCoordinate(v)
		width := cur.Len() + 2 + len(s)
		if i < len(data)-1 {
			width += 2
		}
		if cur.Len() > 0 && (count >= valuesPerLine || width > lineWidth) {
			lines = append(lines, cur.String())
			cur.Reset()
			count = 0
		}
		if cur.Len() > 0 {
			cur.WriteString(", ")
		}
		cur.WriteString(s)
		count++
	}
	return append(lines, cur.String())
}

// formatCoordinate prints integral values without a fraction and very large
// or very small magnitudes in scientific notation.
func formatCoordinate(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return strconv.FormatFloat(v, 'f', -1, 64)
	case v == math.Trunc(v) && math.Abs(v) < 1e10:
		return strconv.FormatInt(int64(v), 10)
	case math.Abs(v) >= 1e6 || (v != 0 && math.Abs(v) < 1e-3):
		return scientific(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// scientific formats v as 1.5e-7, without a plus sign or exponent padding.
func scientific(v float64) string {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := ""
	if exp[0] == '-' {
		sign = "-"
	}
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}

// value renders an attribute value.
func (d *dumper) value(v metadata.Value) string {
	switch x := v.(type) {
	case metadata.String:
		escaped := strings.NewReplacer(`"`, `\"`, "\n", `\n`).Replace(string(x))
		return d.p.str.Sprintf(`"%s"`, escaped)
	case metadata.Number:
		return d.p.number.Sprint(strconv.FormatFloat(float64(x), 'f', -1, 64))
	case metadata.Integer:
		return d.p.number.Sprint(int64(x))
	case metadata.Boolean:
		return d.p.boolean.Sprint(bool(x))
	case metadata.Array:
		n := min(len(x), maxAttributeItems)
		items := make([]string, n)
		for i := range n {
			items[i] = d.value(x[i])
		}
		body := strings.Join(items, ", ")
		if len(x) > maxAttributeItems {
			body += ", ..."
		}
		return d.p.plain.Sprintf("[%s]", body)
	case metadata.Object:
		return d.p.plain.Sprint("{...}")
	}
	return d.p.comment.Sprint("null")
}

// variableNotFound lists up to 20 variable names for an unknown key.
func variableNotFound(raw string, md *metadata.ZarrMetadata) error {
	paths := md.VariablePaths()
	shown := min(len(paths), 20)
	names := make([]string, shown)
	for i, p := range paths[:shown] {
		if p == "" {
			p = metadata.RootName
		}
		names[i] = p
	}
	return fmt.Errorf("variable '%s' not found in store. Available variables (first %d): %s", raw, shown, strings.Join(names, ", "))
}
