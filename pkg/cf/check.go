package cf

import (
	"context"
	"errors"
	"strings"

	"github.com/nainya/zarrdump/pkg/chunk"
	"github.com/nainya/zarrdump/pkg/metadata"
)

// Options tunes the sampled numeric checks.
type Options struct {
	// SampleLimit caps how many leading coordinate values are read.
	SampleLimit uint64
	// Tolerance widens the latitude and longitude range bounds.
	Tolerance float64
}

// DefaultOptions returns the standard sampling parameters.
func DefaultOptions() Options {
	return Options{SampleLimit: 10000, Tolerance: 1e-6}
}

var errNoReader = errors.New("no array reader configured")

// Check runs every rule against md and returns the findings. Rules never
// fail the check; read errors are recorded as warnings.
func Check(ctx context.Context, md *metadata.ZarrMetadata, reader chunk.Reader, opts Options) *Report {
	if opts.SampleLimit == 0 {
		opts.SampleLimit = DefaultOptions().SampleLimit
	}
	c := &checker{ctx: ctx, md: md, reader: reader, opts: opts, report: &Report{}}

	c.globalConventions()
	c.dimensionNameAttributes()
	coords := coordinateVariables(md)
	c.coordinateVariables(coords)
	c.dimensionCoverage(coords)
	c.gridMappings()
	c.coordinateReferences()

	return c.report
}

type checker struct {
	ctx    context.Context
	md     *metadata.ZarrMetadata
	reader chunk.Reader
	opts   Options
	report *Report
}

func (c *checker) globalConventions() {
	v, ok := conventions(c.md)
	if !ok {
		c.report.warnf("Global attribute 'Conventions' is missing (CF datasets usually set this, e.g. 'CF-1.8').")
		return
	}
	s, isString := v.(metadata.String)
	switch {
	case !isString:
		c.report.warnf("Global attribute 'Conventions' is present but not a string: %s", v.Kind())
	case strings.Contains(string(s), "CF-"):
		c.report.infof("Conventions = '%s'", s)
	default:
		c.report.warnf("Global attribute 'Conventions' is present but does not contain 'CF-': '%s'", s)
	}
}

func (c *checker) dimensionNameAttributes() {
	for _, p := range c.md.VariablePaths() {
		v := c.md.Variables[p]
		if len(v.Shape) > 0 && !v.Attributes.Has(metadata.AttrArrayDimensions) && !v.Attributes.Has(metadata.AttrDimensionNames) {
			c.report.warnf("Variable '%s' has no explicit dimension name list (_ARRAY_DIMENSIONS/dimension_names); CF tooling may have trouble interpreting axes.", v.DisplayPath())
		}
		c.dimensionNameList(v, metadata.AttrArrayDimensions)
		c.dimensionNameList(v, metadata.AttrDimensionNames)
	}
}

func (c *checker) dimensionNameList(v *metadata.Variable, attr string) {
	val, ok := v.Attributes[attr]
	if !ok {
		return
	}
	items, ok := val.(metadata.Array)
	if !ok {
		c.report.warnf("Variable '%s' attribute '%s' is present but not an array (found %s).", v.DisplayPath(), attr, val.Kind())
		return
	}

	if len(items) != len(v.Shape) {
		c.report.errorf("Variable '%s' %s length (%d) does not match shape dimensionality (%d).", v.DisplayPath(), attr, len(items), len(v.Shape))
	}

	var names []string
	nonString := false
	for _, item := range items {
		if s, ok := item.(metadata.String); ok {
			names = append(names, string(s))
		} else {
			nonString = true
		}
	}
	if nonString {
		c.report.warnf("Variable '%s' %s contains non-string entries; expected an array of strings.", v.DisplayPath(), attr)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			c.report.warnf("Variable '%s' %s contains an empty dimension name.", v.DisplayPath(), attr)
		}
		if seen[name] {
			c.report.warnf("Variable '%s' %s contains duplicate dimension name '%s'.", v.DisplayPath(), attr, name)
		}
		seen[name] = true
	}
}

func (c *checker) coordinateVariables(coords []*metadata.Variable) {
	for _, v := range coords {
		c.coordinate(v)
	}
	if len(coords) == 0 && len(c.md.Dimensions) > 0 {
		c.report.warnf("No coordinate variables detected (1D vars named like their dimension). Many CF datasets include them for axes like time/lat/lon.")
	}
}

func (c *checker) coordinate(v *metadata.Variable) {
	info := describe(v)
	label := v.DisplayPath()
	length := v.Shape[0]
	isTime := info.isTime()

	if length == 0 {
		c.report.warnf("Coordinate variable '%s' has length 0.", label)
	}

	switch units, ok := v.Attributes["units"]; {
	case !ok:
		c.report.warnf("Coordinate variable '%s' is missing 'units' attribute.", label)
	case units.Kind() != "string":
		c.report.warnf("Coordinate variable '%s' has non-string 'units' attribute: %s", label, units.Kind())
	}

	if sn, ok := v.Attributes.String("standard_name"); ok {
		c.report.infof("Coordinate variable '%s' standard_name='%s'", label, sn)
	}

	if isTime {
		if units, ok := v.Attributes.String("units"); ok && !TimeUnitsValid(units) {
			c.report.warnf("Time coordinate variable '%s' has units='%s' (expected e.g. 'days since 1850-01-01').", label, units)
		}
		if cal, ok := v.Attributes["calendar"]; ok && cal.Kind() != "string" {
			c.report.warnf("Time coordinate variable '%s' has non-string 'calendar' attribute: %s", label, cal.Kind())
		}
	}

	if info.isVertical() {
		switch pos, ok := v.Attributes["positive"]; {
		case !ok:
			if info.positiveRequired() {
				c.report.warnf("Vertical coordinate variable '%s' is missing 'positive' attribute (expected 'up' or 'down').", label)
			}
		case pos.Kind() != "string":
			c.report.warnf("Vertical coordinate variable '%s' has non-string 'positive' attribute: %s", label, pos.Kind())
		default:
			s := string(pos.(metadata.String))
			if lc := strings.ToLower(s); lc != "up" && lc != "down" {
				c.report.warnf("Vertical coordinate variable '%s' has positive='%s' (expected 'up' or 'down').", label, s)
			}
		}
	}

	if bounds, ok := v.Attributes.String("bounds"); ok {
		c.bounds(v, bounds)
	}

	if length >= 2 {
		c.sample(v, info, min(length, c.opts.SampleLimit))
	}
}

func (c *checker) bounds(coord *metadata.Variable, name string) {
	b, ok := c.md.Resolve(coord.Path, name)
	if !ok {
		c.report.warnf("Coordinate '%s' declares bounds='%s' but bounds variable was not found.", coord.Name, name)
		return
	}

	length := coord.Shape[0]
	if len(b.Shape) < 2 {
		c.report.warnf("Bounds variable '%s' has shape %v; expected at least 2 dimensions (e.g. (n, 2)).", b.DisplayPath(), b.Shape)
		return
	}
	if b.Shape[0] != length {
		c.report.warnf("Bounds variable '%s' first dimension size %d does not match coordinate '%s' length %d.", b.DisplayPath(), b.Shape[0], coord.Name, length)
	}
	if b.Shape[1] != 2 {
		c.report.warnf("Bounds variable '%s' second dimension size is %d (often 2 in CF).", b.DisplayPath(), b.Shape[1])
	}
}

func (c *checker) sample(v *metadata.Variable, info coordInfo, n uint64) {
	dim := info.name
	isTime := info.isTime()

	var data []float64
	err := errNoReader
	if c.reader != nil {
		data, err = c.reader.ReadFloat64(c.ctx, v.Path, []chunk.Range{{Start: 0, End: n}})
	}
	if err != nil {
		kind := "coordinate"
		if isTime {
			kind = "time coordinate"
		}
		c.report.warnf("Skipping monotonicity check for %s '%s' (%s): %v", kind, dim, v.DisplayPath(), err)
		return
	}

	missing := MissingValues(v)
	dir := Monotonic(data, missing)
	if isTime {
		switch dir {
		case Increasing:
			c.report.infof("Time coordinate '%s' appears monotonic increasing (checked first %d values).", dim, n)
		case Decreasing:
			c.report.warnf("Time coordinate '%s' appears monotonic decreasing (expected increasing; checked first %d values).", dim, n)
		case Constant:
			c.report.warnf("Time coordinate '%s' appears constant (expected increasing; checked first %d values).", dim, n)
		default:
			c.report.warnf("Time coordinate '%s' is not monotonic (expected increasing; checked first %d values).", dim, n)
		}
	} else {
		switch dir {
		case Increasing, Decreasing:
			c.report.infof("Coordinate '%s' appears monotonic %s (checked first %d values).", dim, dir, n)
		case Constant:
			c.report.warnf("Coordinate '%s' appears constant (checked first %d values).", dim, n)
		default:
			c.report.warnf("Coordinate '%s' is not monotonic (checked first %d values).", dim, n)
		}
	}

	isLat, isLon := info.isLatitude(), info.isLongitude()
	if !isLat && !isLon {
		return
	}
	lo, hi, ok := MinMax(data, missing)
	if !ok {
		return
	}
	eps := c.opts.Tolerance
	if isLat && (lo < -90-eps || hi > 90+eps) {
		c.report.warnf("Latitude coordinate '%s' sample range [%.6f, %.6f] looks out of bounds for degrees_north.", dim, lo, hi)
	}
	if isLon && (lo < -360-eps || hi > 360+eps) {
		c.report.warnf("Longitude coordinate '%s' sample range [%.6f, %.6f] looks out of bounds for degrees_east.", dim, lo, hi)
	}
}

func (c *checker) dimensionCoverage(coords []*metadata.Variable) {
	covered := make(map[string]bool, len(coords))
	for _, v := range coords {
		covered[v.Dimensions[0].Name] = true
	}

	for _, name := range c.md.DimensionNames() {
		if c.md.Dimensions[name].MaxLength == 2 || strings.HasPrefix(name, "dim_") {
			continue
		}
		if !covered[name] {
			c.report.warnf("Dimension '%s' has no coordinate variable '%s' (1D var with same name).", name, name)
		}
	}
}

func (c *checker) gridMappings() {
	for _, p := range c.md.VariablePaths() {
		v := c.md.Variables[p]
		gm, ok := v.Attributes.String("grid_mapping")
		if !ok {
			continue
		}
		target, ok := c.md.Resolve(p, gm)
		if !ok {
			c.report.warnf("Variable '%s' references grid_mapping='%s' but mapping variable was not found.", v.DisplayPath(), gm)
			continue
		}
		switch name, ok := target.Attributes["grid_mapping_name"]; {
		case !ok:
			c.report.warnf("grid_mapping '%s' exists but is missing grid_mapping_name attribute.", target.DisplayPath())
		case name.Kind() != "string":
			c.report.warnf("grid_mapping '%s' exists but grid_mapping_name is not a string: %s", target.DisplayPath(), name.Kind())
		default:
			c.report.infof("grid_mapping '%s' found (grid_mapping_name='%s') for variable '%s'.", target.DisplayPath(), name.(metadata.String), v.DisplayPath())
		}
	}
}

func (c *checker) coordinateReferences() {
	for _, p := range c.md.VariablePaths() {
		v := c.md.Variables[p]
		coords, ok := v.Attributes.String("coordinates")
		if !ok {
			continue
		}
		for _, name := range strings.Fields(coords) {
			if _, ok := c.md.Resolve(p, name); !ok {
				c.report.warnf("Variable '%s' lists coordinates='%s' but '%s' was not found.", v.DisplayPath(), coords, name)
			}
		}
	}
}
