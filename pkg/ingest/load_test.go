package ingest

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/zarrdump/pkg/metadata"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

const latArray = `{
	"zarr_format": 2,
	"shape": [3],
	"chunks": [3],
	"dtype": "<f8",
	"compressor": {"id": "zlib", "level": 1},
	"fill_value": "NaN",
	"order": "C",
	"filters": [{"id": "delta", "dtype": "<f8"}]
}`

func hierarchicalStore() fstest.MapFS {
	return fstest.MapFS{
		".zgroup":                file(`{"zarr_format": 2}`),
		".zattrs":                file(`{"Conventions": "CF-1.8", "title": "demo"}`),
		"lat/.zarray":            file(latArray),
		"lat/.zattrs":            file(`{"_ARRAY_DIMENSIONS": ["lat"], "units": "degrees_north"}`),
		"lat/0":                  file("chunk"),
		"grp/.zgroup":            file(`{"zarr_format": 2}`),
		"grp/.zattrs":            file(`{"description": "nested"}`),
		"grp/tas/.zarray":        file(`{"zarr_format": 2, "shape": [2, 3], "chunks": [1, 3], "dtype": "<f4", "compressor": null, "fill_value": null, "order": "F", "filters": null}`),
		"grp/tas/.zattrs":        file(`{"_ARRAY_DIMENSIONS": ["time", "lat"]}`),
		".hidden/x/.zarray":      file(`not json`),
		"grp/tas/0/0":            file("chunk"),
		"notes/readme.txt":       file("plain"),
		"notes/inner/v/.zarray":  file(`{"zarr_format": 2, "shape": [], "chunks": [], "dtype": "<i4", "compressor": null, "fill_value": 0, "order": "C", "filters": null}`),
		"notes/inner/v/.zattrs2": file(`ignored`),
	}
}

func TestLoadHierarchical(t *testing.T) {
	res, err := Load(hierarchicalStore(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyHierarchical, res.Strategy)

	md := res.Metadata
	assert.Equal(t, metadata.String("CF-1.8"), md.GlobalAttributes["Conventions"])
	assert.Equal(t, md.GlobalAttributes, md.RootGroup.Attributes)
	assert.Equal(t, []string{"grp/tas", "lat", "notes/inner/v"}, md.VariablePaths())
	assert.Equal(t, []string{"grp"}, md.GroupPaths())

	lat := md.Variables["lat"]
	require.NotNil(t, lat.Compressor)
	assert.Equal(t, "zlib", *lat.Compressor)
	assert.Equal(t, []string{"delta"}, lat.Filters)
	assert.Equal(t, metadata.String("NaN"), lat.FillValue)
	assert.Equal(t, "lat", lat.Name)

	tas := md.Variables["grp/tas"]
	assert.Nil(t, tas.Compressor)
	assert.Nil(t, tas.FillValue)
	assert.Equal(t, "F", tas.Order)
	assert.Equal(t, "tas", tas.Name)
	assert.Equal(t, "nested", string(md.Groups["grp"].Attributes["description"].(metadata.String)))
	assert.Equal(t, []string{"tas"}, md.Groups["grp"].Children)
	assert.ElementsMatch(t, []string{"grp", "lat"}, md.RootGroup.Children)

	assert.Equal(t, metadata.Integer(0), md.Variables["notes/inner/v"].FillValue)

	require.Contains(t, md.Dimensions, "lat")
	assert.Len(t, md.Dimensions["lat"].Appearances, 2)
	assert.False(t, md.Dimensions["lat"].IsUnlimited)
}

func TestLoadConsolidatedPreferredOverScan(t *testing.T) {
	fsys := hierarchicalStore()
	fsys[".zmetadata"] = file(`{
		"zarr_consolidated_format": 1,
		"metadata": {
			".zgroup": {"zarr_format": 2},
			".zattrs": {"Conventions": "CF-1.6"},
			"time/.zarray": {"zarr_format": 2, "shape": [4], "chunks": [4], "dtype": "<i8", "compressor": {"id": "blosc"}, "fill_value": null, "order": "C", "filters": null},
			"time/.zattrs": {"_ARRAY_DIMENSIONS": ["time"], "units": "days since 2000-01-01"},
			"sub/.zgroup": {"zarr_format": 2},
			"sub/.zattrs": {"k": 1},
			"sub/u/.zarray": {"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f4", "compressor": null, "fill_value": 1.5, "order": "C", "filters": null}
		}
	}`)

	res, err := Load(fsys, Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyConsolidated, res.Strategy)

	md := res.Metadata
	assert.Equal(t, []string{"sub/u", "time"}, md.VariablePaths())
	assert.Equal(t, metadata.String("CF-1.6"), md.GlobalAttributes["Conventions"])
	assert.Equal(t, "blosc", *md.Variables["time"].Compressor)
	assert.Equal(t, metadata.Number(1.5), md.Variables["sub/u"].FillValue)
	assert.Equal(t, metadata.Integer(1), md.Groups["sub"].Attributes["k"])
	assert.Equal(t, []string{"u"}, md.Groups["sub"].Children)

	// sub/u has no names, time has them
	assert.Equal(t, "dim_0", md.Variables["sub/u"].Dimensions[0].Name)
	assert.Equal(t, uint64(4), md.Dimensions["time"].MaxLength)
}

func TestLoadConsolidatedMalformedIsFatal(t *testing.T) {
	fsys := hierarchicalStore()
	fsys[".zmetadata"] = file(`{"metadata": {`)

	_, err := Load(fsys, Options{})
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ZMetadataFile, perr.Path)
}

func TestLoadMalformedZarrayIsFatal(t *testing.T) {
	fsys := fstest.MapFS{
		".zgroup":     file(`{"zarr_format": 2}`),
		"bad/.zarray": file(`{"shape": [3`),
	}

	_, err := Load(fsys, Options{})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad/.zarray", perr.Path)
}

func TestLoadMalformedZattrsIsFatal(t *testing.T) {
	fsys := fstest.MapFS{
		"a/.zarray": file(latArray),
		"a/.zattrs": file(`[1, 2]`),
	}

	_, err := Load(fsys, Options{})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "a/.zattrs", perr.Path)
}

func TestLoadEmptyDirectoryIsNotStore(t *testing.T) {
	fsys := fstest.MapFS{"readme.md": file("hello")}

	_, err := Load(fsys, Options{})
	assert.ErrorIs(t, err, ErrNotStore)
}

func TestLoadRootGroupOnlyIsNotStore(t *testing.T) {
	fsys := fstest.MapFS{
		".zgroup": file(`{"zarr_format": 2}`),
		".zattrs": file(`{"title": "empty"}`),
	}

	_, err := Load(fsys, Options{})
	assert.ErrorIs(t, err, ErrNotStore)
}

func TestLoadEmptyConsolidatedFallsBackToScan(t *testing.T) {
	fsys := fstest.MapFS{
		".zmetadata":  file(`{"zarr_consolidated_format": 1, "metadata": {}}`),
		"lat/.zarray": file(latArray),
		"lat/.zattrs": file(`{"_ARRAY_DIMENSIONS": ["lat"]}`),
	}

	res, err := Load(fsys, Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyHierarchical, res.Strategy)
	assert.Equal(t, []string{"lat"}, res.Metadata.VariablePaths())
	assert.Equal(t, uint64(3), res.Metadata.Dimensions["lat"].MaxLength)
}

func TestLoadRootGroupOnlyConsolidatedIsNotStore(t *testing.T) {
	fsys := fstest.MapFS{
		".zmetadata": file(`{"zarr_consolidated_format": 1, "metadata": {".zgroup": {"zarr_format": 2}}}`),
		".zgroup":    file(`{"zarr_format": 2}`),
	}

	_, err := Load(fsys, Options{})
	assert.ErrorIs(t, err, ErrNotStore)
}

func TestLoadFallbackLogsFailedStrategy(t *testing.T) {
	fsys := fstest.MapFS{
		".zmetadata":  file(`{"zarr_consolidated_format": 1, "metadata": {}}`),
		"lat/.zarray": file(latArray),
	}

	var buf bytes.Buffer
	_, err := Load(fsys, Options{Logger: zerolog.New(&buf).Level(zerolog.WarnLevel)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"strategy":"consolidated"`)
	assert.NotContains(t, buf.String(), `"strategy":"v3"`)
}

func TestLoadRootArray(t *testing.T) {
	fsys := fstest.MapFS{
		".zarray": file(latArray),
		".zattrs": file(`{"units": "m"}`),
	}

	res, err := Load(fsys, Options{})
	require.NoError(t, err)

	v := res.Metadata.Variables[""]
	require.NotNil(t, v)
	assert.Equal(t, "root", v.Name)
	assert.Equal(t, "root", v.DisplayPath())
	assert.Equal(t, metadata.String("m"), res.Metadata.GlobalAttributes["units"])
}

func TestLoadMissingRootSurfacesNotStore(t *testing.T) {
	_, err := LoadHierarchical(fstest.MapFS{})
	assert.True(t, errors.Is(err, ErrNotStore) || errors.Is(err, fs.ErrNotExist))
}
