package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le64(vals ...float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func le32(vals ...float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func zarray(shape, dtype string) string {
	return `{"zarr_format": 2, "shape": ` + shape + `, "chunks": ` + shape + `, "dtype": "` + dtype +
		`", "compressor": null, "fill_value": null, "order": "C", "filters": null}`
}

func writeStore(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo.zarr")
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return dir
}

// demoStore holds time(2), lat(3), lon(4) and temp(time, lat, lon) = 0..23.
func demoStore(t *testing.T) string {
	temp := make([]float32, 24)
	for i := range temp {
		temp[i] = float32(i)
	}
	return writeStore(t, map[string][]byte{
		".zgroup":      []byte(`{"zarr_format": 2}`),
		".zattrs":      []byte(`{"Conventions": "CF-1.8", "title": "demo"}`),
		"time/.zarray": []byte(zarray("[2]", "<f8")),
		"time/.zattrs": []byte(`{"_ARRAY_DIMENSIONS": ["time"], "units": "days since 2000-01-01"}`),
		"time/0":       le64(0, 1),
		"lat/.zarray":  []byte(zarray("[3]", "<f8")),
		"lat/.zattrs":  []byte(`{"_ARRAY_DIMENSIONS": ["lat"], "units": "degrees_north"}`),
		"lat/0":        le64(-90, 0, 90),
		"lon/.zarray":  []byte(zarray("[4]", "<f8")),
		"lon/.zattrs":  []byte(`{"_ARRAY_DIMENSIONS": ["lon"], "units": "degrees_east"}`),
		"lon/0":        le64(0, 90, 180, 270),
		"temp/.zarray": []byte(zarray("[2, 3, 4]", "<f4")),
		"temp/.zattrs": []byte(`{"_ARRAY_DIMENSIONS": ["time", "lat", "lon"], "units": "K"}`),
		"temp/0.0.0":   le32(temp...),
	})
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	args = append([]string{"--no-color", "--log-level", "error"}, args...)
	err := Execute(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestDump(t *testing.T) {
	store := demoStore(t)

	out, _, err := execute(t, "dump", store)
	require.NoError(t, err)

	want := "Opening Zarr store: " + store + `
zarr store {
dimensions:
    lat = 3 ;
    lon = 4 ;
    time = 2 ;
variables:
    double lat(lat) ;
        lat:_ARRAY_DIMENSIONS = ["lat"] ;
        lat:units = "degrees_north" ;
    double lon(lon) ;
        lon:_ARRAY_DIMENSIONS = ["lon"] ;
        lon:units = "degrees_east" ;
    float temp(time, lat, lon) ;
        temp:_ARRAY_DIMENSIONS = ["time", "lat", "lon"] ;
        temp:units = "K" ;
    double time(time) ;
        time:_ARRAY_DIMENSIONS = ["time"] ;
        time:units = "days since 2000-01-01" ;
// global attributes:
    :Conventions = "CF-1.8" ;
    :title = "demo" ;
// CF summary:
    // Conventions: CF-1.8
    // Axes:
    //   T: time (dim 'time')
    //   Y: lat (dim 'lat')
    //   X: lon (dim 'lon')
    // Suggested plot dims: lat,lon
    // Suggested slice dims: time
    // Candidate data variables: temp
}
`
	assert.Equal(t, want, out)
}

func TestDumpIsDefaultCommand(t *testing.T) {
	store := demoStore(t)

	viaRoot, _, err := execute(t, store)
	require.NoError(t, err)
	viaDump, _, err := execute(t, "dump", store)
	require.NoError(t, err)
	assert.Equal(t, viaDump, viaRoot)
}

func TestDumpCoordinateData(t *testing.T) {
	store := demoStore(t)

	out, _, err := execute(t, store, "-c")
	require.NoError(t, err)
	assert.Contains(t, out, "data:\n\n lat = -90, 0, 90 ;\n\n lon = 0, 90, 180, 270 ;\n\n time = 0, 1 ;\n\n}\n")
}

func TestDumpCoordinateReadErrorIsInline(t *testing.T) {
	store := demoStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store, "lat", "0"), []byte{1, 2, 3}, 0o644))

	out, _, err := execute(t, "dump", "-c", store)
	require.NoError(t, err)
	assert.Contains(t, out, " lat = <error reading data: ")
	assert.Contains(t, out, " lon = 0, 90, 180, 270 ;")
}

func TestDumpMissingStore(t *testing.T) {
	_, errOut, err := execute(t, "dump", filepath.Join(t.TempDir(), "missing.zarr"))
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, errOut, "Error: failed to load Zarr store from")
}

func TestCheck(t *testing.T) {
	store := demoStore(t)

	out, _, err := execute(t, "cf-check", store)
	require.NoError(t, err)
	assert.Contains(t, out, "cf-check {\n")
	assert.Contains(t, out, "  INFO: Conventions = 'CF-1.8'\n")
	assert.Contains(t, out, "  INFO: Coordinate 'lat' appears monotonic increasing (checked first 3 values).\n")
	assert.Contains(t, out, "  INFO: Time coordinate 'time' appears monotonic increasing (checked first 2 values).\n")
	assert.True(t, strings.HasSuffix(out, "}\nSummary: 0 warnings, 0 errors\n"), out)
}

func TestCheckFailsOnErrors(t *testing.T) {
	store := writeStore(t, map[string][]byte{
		".zgroup":     []byte(`{"zarr_format": 2}`),
		"bad/.zarray": []byte(zarray("[2]", "<i4")),
		"bad/.zattrs": []byte(`{"_ARRAY_DIMENSIONS": ["a", "b"]}`),
	})

	out, errOut, err := execute(t, "cf-check", store)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "ERROR: Variable 'bad' _ARRAY_DIMENSIONS length (2) does not match shape dimensionality (1).")
	assert.Contains(t, errOut, "Error: CF check failed")
}

func TestSlice(t *testing.T) {
	store := demoStore(t)

	want := "temp: lat,lon (3 x 4)\n" +
		"12 13 14 15\n" +
		"16 17 18 19\n" +
		"20 21 22 23\n" +
		"// min = 12, max = 23\n"

	out, _, err := execute(t, "slice", store, "temp", "--dims", "lat,lon", "--slice", "time=1")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	// Without --dims the suggested plot dims are used.
	out, _, err = execute(t, "slice", store, "/temp", "--slice", "time=1")
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestSliceTransposed(t *testing.T) {
	store := demoStore(t)

	out, _, err := execute(t, "slice", store, "temp", "--dims", "lon,time", "--slice", "lat=0")
	require.NoError(t, err)
	assert.Equal(t, "temp: lon,time (4 x 2)\n0 12\n1 13\n2 14\n3 15\n// min = 0, max = 15\n", out)
}

func TestSliceErrors(t *testing.T) {
	store := demoStore(t)

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"unknown variable", []string{"nope"}, 1, "variable 'nope' not found in store. Available variables (first 4): lat, lon, temp, time"},
		{"missing slice", []string{"temp", "--dims", "lat,lon"}, 1, "missing --slice for dimensions: time"},
		{"index out of bounds", []string{"temp", "--slice", "time=2"}, 1, "index 2 out of bounds for dimension 'time' (valid range: 0..1)"},
		{"one dimensional", []string{"lat"}, 1, "cannot plot variable 'lat' because it has 1 dimensions (need at least 2)"},
		{"malformed dims", []string{"temp", "--dims", "lat"}, 2, "invalid --dims 'lat'"},
		{"malformed slice", []string{"temp", "--slice", "time"}, 2, "invalid --slice 'time'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, append([]string{"slice", store}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ExitCode(err))
			assert.Contains(t, errOut, tt.msg)
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"dump", "--bogus", "x"}},
		{"too many stores", []string{"a", "b"}},
		{"dump without store", []string{"dump"}},
		{"slice without variable", []string{"slice", "store"}},
		{"invalid log level", []string{"--log-level", "loud", "dump", "x"}},
		{"invalid sample limit", []string{"cf-check", "--sample-limit", "0", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, 2, ExitCode(err))
		})
	}
}

func TestMetricsTextfile(t *testing.T) {
	store := demoStore(t)
	path := filepath.Join(t.TempDir(), "zarrdump.prom")

	_, _, err := execute(t, "--metrics-textfile", path, "cf-check", store)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `zarrdump_loads_total{status="success",strategy="hierarchical"} 1`)
	assert.Contains(t, string(data), `zarrdump_sample_reads_total{status="success"} 3`)
}

func TestConfigFileSampleLimit(t *testing.T) {
	store := demoStore(t)
	cfgPath := filepath.Join(t.TempDir(), "zarrdump.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("check:\n  sample_limit: 2\n"), 0o644))

	out, _, err := execute(t, "--config", cfgPath, "cf-check", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Coordinate 'lat' appears monotonic increasing (checked first 2 values).")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "zarrdump version: "+Version)
	assert.Contains(t, out, "Go version: go")
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"dump", "cf-check", "slice", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(assert.AnError))
	assert.Equal(t, 2, ExitCode(usageError(assert.AnError)))
	assert.Equal(t, 3, ExitCode(usageError(&ExitError{Code: 3, Message: "kept"})))
}
