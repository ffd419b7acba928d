package cf

import (
	"strings"
	"unicode"

	"github.com/nainya/zarrdump/pkg/metadata"
)

var timeUnitPrefixes = map[string]bool{
	"seconds": true, "second": true,
	"minutes": true, "minute": true,
	"hours": true, "hour": true,
	"days": true, "day": true,
	"months": true, "month": true,
	"years": true, "year": true,
}

var verticalStandardNames = map[string]bool{
	"air_pressure":        true,
	"depth":               true,
	"altitude":            true,
	"geopotential_height": true,
	"model_level_number":  true,

	"atmosphere_hybrid_sigma_pressure_coordinate": true,
	"atmosphere_hybrid_height_coordinate":         true,
	"atmosphere_sigma_coordinate":                 true,
	"ocean_sigma_coordinate":                      true,
	"ocean_sigma_z_coordinate":                    true,
	"ocean_s_coordinate":                          true,
	"ocean_s_coordinate_g1":                       true,
	"ocean_s_coordinate_g2":                       true,
	"ocean_double_sigma_coordinate":               true,
}

var verticalNames = map[string]bool{
	"lev": true, "level": true, "plev": true, "depth": true,
	"altitude": true, "height": true, "z": true,
}

// TimeUnitsValid reports whether units look like "<unit> since <date>".
func TimeUnitsValid(units string) bool {
	u := strings.ToLower(strings.TrimSpace(units))
	if u == "" {
		return false
	}
	prefix, rest, ok := strings.Cut(u, " since ")
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || !strings.ContainsFunc(rest, unicode.IsDigit) {
		return false
	}
	return timeUnitPrefixes[strings.TrimSpace(prefix)]
}

// coordInfo holds the attributes that drive coordinate classification.
type coordInfo struct {
	name         string
	axis         rune // 0 when absent
	standardName string
	units        string
}

func describe(v *metadata.Variable) coordInfo {
	c := coordInfo{name: v.Name}
	if len(v.Dimensions) > 0 {
		c.name = v.Dimensions[0].Name
	}
	if axis, ok := v.Attributes.String("axis"); ok {
		for _, r := range axis {
			c.axis = unicode.ToUpper(r)
			break
		}
	}
	c.standardName, _ = v.Attributes.String("standard_name")
	c.units, _ = v.Attributes.String("units")
	return c
}

func (c coordInfo) isTime() bool {
	if c.axis == 'T' || strings.EqualFold(c.standardName, "time") {
		return true
	}
	if len(c.name) >= 4 && strings.EqualFold(c.name[:4], "time") {
		return true
	}
	return c.units != "" && TimeUnitsValid(c.units)
}

func (c coordInfo) isVertical() bool {
	if c.axis == 'Z' {
		return true
	}
	if c.standardName != "" && verticalStandardNames[strings.ToLower(c.standardName)] {
		return true
	}
	return verticalNames[strings.ToLower(c.name)]
}

func (c coordInfo) isLatitude() bool {
	if strings.EqualFold(c.standardName, "latitude") {
		return true
	}
	u := strings.ToLower(c.units)
	return strings.Contains(u, "degrees_north") || strings.Contains(u, "degree_north")
}

func (c coordInfo) isLongitude() bool {
	if strings.EqualFold(c.standardName, "longitude") {
		return true
	}
	u := strings.ToLower(c.units)
	return strings.Contains(u, "degrees_east") || strings.Contains(u, "degree_east")
}

// positiveRequired reports whether a vertical coordinate must declare "positive".
func (c coordInfo) positiveRequired() bool {
	switch strings.ToLower(c.name) {
	case "depth", "altitude", "height":
		return true
	}
	switch strings.ToLower(c.standardName) {
	case "depth", "altitude", "geopotential_height":
		return true
	}
	return false
}

// axisLetter classifies a coordinate for the summary.
func (c coordInfo) axisLetter() rune {
	switch {
	case c.isTime():
		return 'T'
	case c.isVertical():
		return 'Z'
	case c.isLatitude():
		return 'Y'
	case c.isLongitude():
		return 'X'
	case c.axis != 0:
		return c.axis
	}
	return '?'
}

// coordinateVariables returns 1-D variables named after their only
// dimension, in sorted path order.
func coordinateVariables(md *metadata.ZarrMetadata) []*metadata.Variable {
	var out []*metadata.Variable
	for _, p := range md.VariablePaths() {
		v := md.Variables[p]
		if len(v.Dimensions) == 1 && v.Dimensions[0].Name == v.Name {
			out = append(out, v)
		}
	}
	return out
}

func conventions(md *metadata.ZarrMetadata) (metadata.Value, bool) {
	if v, ok := md.GlobalAttributes["Conventions"]; ok {
		return v, true
	}
	v, ok := md.GlobalAttributes["conventions"]
	return v, ok
}
