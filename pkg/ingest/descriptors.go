package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/nainya/zarrdump/pkg/metadata"
)

// Metadata document names.
const (
	ZArrayFile    = ".zarray"
	ZGroupFile    = ".zgroup"
	ZAttrsFile    = ".zattrs"
	ZMetadataFile = ".zmetadata"
	ZarrJSONFile  = "zarr.json"
)

// ArrayV2 is the decoded content of a v2 .zarray document.
type ArrayV2 struct {
	ZarrFormat         int             `json:"zarr_format"`
	Shape              []uint64        `json:"shape"`
	Chunks             []uint64        `json:"chunks"`
	DType              json.RawMessage `json:"dtype"`
	Compressor         json.RawMessage `json:"compressor"`
	FillValue          json.RawMessage `json:"fill_value"`
	Order              string          `json:"order"`
	Filters            json.RawMessage `json:"filters"`
	DimensionSeparator string          `json:"dimension_separator"`
}

// ParseArrayV2 decodes a .zarray document.
func ParseArrayV2(data []byte) (*ArrayV2, error) {
	var a ArrayV2
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DTypeString returns the dtype verbatim; structured dtypes keep their JSON text.
func (a *ArrayV2) DTypeString() string {
	var s string
	if err := json.Unmarshal(a.DType, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(a.DType))
}

// CompressorID returns the compressor's "id", or nil when there is none.
func (a *ArrayV2) CompressorID() *string {
	id := codecID(a.Compressor)
	if id == "" {
		return nil
	}
	return &id
}

// FilterIDs returns the "id" of every declared filter.
func (a *ArrayV2) FilterIDs() []string {
	var raw []json.RawMessage
	if err := json.Unmarshal(a.Filters, &raw); err != nil {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, f := range raw {
		if id := codecID(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Variable builds a model variable from the array document.
func (a *ArrayV2) Variable(path string, attrs metadata.Attributes) *metadata.Variable {
	order := a.Order
	if order == "" {
		order = "C"
	}
	if attrs == nil {
		attrs = metadata.Attributes{}
	}
	return &metadata.Variable{
		Name:       metadata.NameFromPath(path),
		Path:       path,
		DType:      a.DTypeString(),
		Shape:      a.Shape,
		Chunks:     a.Chunks,
		Compressor: a.CompressorID(),
		FillValue:  optionalValue(a.FillValue),
		Order:      order,
		Filters:    a.FilterIDs(),
		Attributes: attrs,
	}
}

// Codec is one entry of a v3 codec pipeline.
type Codec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// NodeV3 is the decoded content of a v3 zarr.json document.
type NodeV3 struct {
	ZarrFormat int             `json:"zarr_format"`
	NodeType   string          `json:"node_type"`
	Shape      []uint64        `json:"shape"`
	DataType   json.RawMessage `json:"data_type"`
	ChunkGrid  struct {
		Name          string `json:"name"`
		Configuration struct {
			ChunkShape []uint64 `json:"chunk_shape"`
		} `json:"configuration"`
	} `json:"chunk_grid"`
	ChunkKeyEncoding struct {
		Name          string `json:"name"`
		Configuration struct {
			Separator string `json:"separator"`
		} `json:"configuration"`
	} `json:"chunk_key_encoding"`
	Codecs               []Codec             `json:"codecs"`
	FillValue            json.RawMessage     `json:"fill_value"`
	Attributes           metadata.Attributes `json:"attributes"`
	DimensionNames       []*string           `json:"dimension_names"`
	ConsolidatedMetadata *struct {
		Metadata map[string]json.RawMessage `json:"metadata"`
	} `json:"consolidated_metadata"`
}

// Node types.
const (
	NodeArray = "array"
	NodeGroup = "group"
)

// ParseNodeV3 decodes a zarr.json document.
func ParseNodeV3(data []byte) (*NodeV3, error) {
	var n NodeV3
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Attributes == nil {
		n.Attributes = metadata.Attributes{}
	}
	return &n, nil
}

// DataTypeName returns data_type as a string; extension types keep their JSON text.
func (n *NodeV3) DataTypeName() string {
	var s string
	if err := json.Unmarshal(n.DataType, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(n.DataType))
}

// Compressor returns the first codec that is not "bytes".
func (n *NodeV3) Compressor() *string {
	for _, c := range n.Codecs {
		if c.Name != "bytes" {
			name := c.Name
			return &name
		}
	}
	return nil
}

// Variable builds a model variable from an array node.
func (n *NodeV3) Variable(path string) *metadata.Variable {
	attrs := make(metadata.Attributes, len(n.Attributes)+1)
	for k, v := range n.Attributes {
		attrs[k] = v
	}
	if n.DimensionNames != nil {
		names := make(metadata.Array, len(n.DimensionNames))
		for i, name := range n.DimensionNames {
			if name == nil {
				names[i] = metadata.Null{}
			} else {
				names[i] = metadata.String(*name)
			}
		}
		attrs[metadata.AttrDimensionNames] = names
	}
	return &metadata.Variable{
		Name:       metadata.NameFromPath(path),
		Path:       path,
		DType:      V2DType(n.DataTypeName()),
		Shape:      n.Shape,
		Chunks:     n.ChunkGrid.Configuration.ChunkShape,
		Compressor: n.Compressor(),
		FillValue:  optionalValue(n.FillValue),
		Order:      "C",
		Attributes: attrs,
	}
}

var v3DTypes = map[string]string{
	"float32": "<f4",
	"float64": "<f8",
	"int8":    "<i1",
	"int16":   "<i2",
	"int32":   "<i4",
	"int64":   "<i8",
	"uint8":   "<u1",
	"uint16":  "<u2",
	"uint32":  "<u4",
	"uint64":  "<u8",
	"bool":    "?",
}

// V2DType maps a v3 data_type name to its v2 short code. Unknown names pass through.
func V2DType(name string) string {
	if code, ok := v3DTypes[name]; ok {
		return code
	}
	return name
}

func codecID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var c struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return ""
	}
	return c.ID
}

func optionalValue(raw json.RawMessage) metadata.Value {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	v, err := metadata.ParseValue(raw)
	if err != nil {
		return nil
	}
	return v
}
