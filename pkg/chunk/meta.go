package chunk

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/nainya/zarrdump/pkg/ingest"
	"github.com/nainya/zarrdump/pkg/metadata"
)

// layout is everything needed to locate and decode the chunks of one array.
type layout struct {
	dir       string
	shape     []uint64
	chunks    []uint64
	dtype     dtype
	fortran   bool
	fill      float64
	decode    decompressor
	prefix    string // "c" for v3 default keys
	separator string
}

// openLayout reads .zarray, else zarr.json, in the array directory.
func openLayout(fsys fs.FS, arrayPath string) (*layout, error) {
	dir := "."
	if arrayPath != "" {
		dir = arrayPath
	}

	data, err := fs.ReadFile(fsys, path.Join(dir, ingest.ZArrayFile))
	if err == nil {
		a, err := ingest.ParseArrayV2(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path.Join(dir, ingest.ZArrayFile), err)
		}
		return layoutV2(dir, a)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read array metadata: %w", err)
	}

	data, err = fs.ReadFile(fsys, path.Join(dir, ingest.ZarrJSONFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read array metadata for %q: %w", arrayPath, err)
	}
	n, err := ingest.ParseNodeV3(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path.Join(dir, ingest.ZarrJSONFile), err)
	}
	if n.NodeType != ingest.NodeArray {
		return nil, fmt.Errorf("%w: %q is a %s, not an array", ErrUnsupported, arrayPath, n.NodeType)
	}
	return layoutV3(dir, n)
}

func layoutV2(dir string, a *ingest.ArrayV2) (*layout, error) {
	if ids := a.FilterIDs(); len(ids) > 0 {
		return nil, fmt.Errorf("%w: filters %v", ErrUnsupported, ids)
	}
	dt, err := parseDType(a.DTypeString())
	if err != nil {
		return nil, err
	}
	id := ""
	if c := a.CompressorID(); c != nil {
		id = *c
	}
	dec, err := codecFor(id)
	if err != nil {
		return nil, err
	}

	l := &layout{
		dir:       dir,
		shape:     a.Shape,
		chunks:    a.Chunks,
		dtype:     dt,
		fortran:   a.Order == "F",
		decode:    dec,
		separator: a.DimensionSeparator,
	}
	if l.separator == "" {
		l.separator = "."
	}
	v := a.Variable("", nil)
	l.fill = fillFloat(v.FillValue, dt)
	return l, l.validate()
}

func layoutV3(dir string, n *ingest.NodeV3) (*layout, error) {
	dt, err := parseDType(ingest.V2DType(n.DataTypeName()))
	if err != nil {
		return nil, err
	}

	var stages []decompressor
	sawBytes := false
	for _, c := range n.Codecs {
		switch c.Name {
		case "bytes":
			var cfg struct {
				Endian string `json:"endian"`
			}
			if len(c.Configuration) > 0 {
				if err := json.Unmarshal(c.Configuration, &cfg); err != nil {
					return nil, fmt.Errorf("failed to parse bytes codec: %w", err)
				}
			}
			if cfg.Endian == "big" {
				dt = dt.withOrder(binary.BigEndian)
			}
			sawBytes = true
		default:
			if !sawBytes {
				return nil, fmt.Errorf("%w: array-to-array codec %q", ErrUnsupported, c.Name)
			}
			dec, err := codecFor(c.Name)
			if err != nil {
				return nil, err
			}
			// Decoding runs the bytes-to-bytes codecs in reverse.
			stages = append([]decompressor{dec}, stages...)
		}
	}

	l := &layout{
		dir:       dir,
		shape:     n.Shape,
		chunks:    n.ChunkGrid.Configuration.ChunkShape,
		dtype:     dt,
		decode:    chain(stages),
		separator: n.ChunkKeyEncoding.Configuration.Separator,
	}
	switch n.ChunkKeyEncoding.Name {
	case "v2":
		if l.separator == "" {
			l.separator = "."
		}
	default:
		l.prefix = "c"
		if l.separator == "" {
			l.separator = "/"
		}
	}
	l.fill = fillFloat(n.Variable("").FillValue, dt)
	return l, l.validate()
}

func (l *layout) validate() error {
	if len(l.chunks) != len(l.shape) {
		return fmt.Errorf("%w: chunk shape %v does not match shape %v", ErrUnsupported, l.chunks, l.shape)
	}
	for _, c := range l.chunks {
		if c == 0 {
			return fmt.Errorf("%w: zero chunk length", ErrUnsupported)
		}
	}
	return nil
}

// chunkKey renders the store key of the chunk at grid position idx.
func (l *layout) chunkKey(idx []uint64) string {
	parts := make([]string, 0, len(idx)+1)
	if l.prefix != "" {
		parts = append(parts, l.prefix)
	}
	for _, i := range idx {
		parts = append(parts, strconv.FormatUint(i, 10))
	}
	if len(parts) == 0 {
		parts = append(parts, "0")
	}
	return path.Join(l.dir, strings.Join(parts, l.separator))
}

// fillFloat converts a declared fill value. Absent fill values become NaN
// for floats and 0 otherwise.
func fillFloat(v metadata.Value, dt dtype) float64 {
	switch fv := v.(type) {
	case metadata.Number:
		return float64(fv)
	case metadata.Integer:
		return float64(fv)
	case metadata.Boolean:
		if fv {
			return 1
		}
		return 0
	case metadata.String:
		switch string(fv) {
		case "NaN":
			return math.NaN()
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
	}
	if dt.kind == 'f' {
		return math.NaN()
	}
	return 0
}
