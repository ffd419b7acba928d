package chunk

import (
	"encoding/binary"
	"fmt"
	"math"
)

// dtype is a fixed-size numeric element encoding.
type dtype struct {
	kind  byte // 'b', 'i', 'u' or 'f'
	size  int
	order binary.ByteOrder
}

// parseDType accepts numpy-style codes ("<f8", ">i2", "|u1", "|b1") and "?".
func parseDType(code string) (dtype, error) {
	if code == "?" || code == "bool" {
		return dtype{kind: 'b', size: 1, order: binary.LittleEndian}, nil
	}
	if len(code) < 3 {
		return dtype{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, code)
	}

	var order binary.ByteOrder
	switch code[0] {
	case '<', '|':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return dtype{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, code)
	}

	d := dtype{kind: code[1], order: order}
	switch code[2:] {
	case "1":
		d.size = 1
	case "2":
		d.size = 2
	case "4":
		d.size = 4
	case "8":
		d.size = 8
	default:
		return dtype{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, code)
	}

	switch {
	case d.kind == 'b' && d.size == 1:
	case d.kind == 'i', d.kind == 'u':
	case d.kind == 'f' && (d.size == 4 || d.size == 8):
	default:
		return dtype{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, code)
	}
	return d, nil
}

// withOrder returns d with the given byte order; single-byte types are unaffected.
func (d dtype) withOrder(order binary.ByteOrder) dtype {
	d.order = order
	return d
}

// decode converts the element at byte offset off.
func (d dtype) decode(buf []byte, off int) float64 {
	b := buf[off : off+d.size]
	switch d.kind {
	case 'b':
		if b[0] != 0 {
			return 1
		}
		return 0
	case 'i':
		switch d.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(d.order.Uint16(b)))
		case 4:
			return float64(int32(d.order.Uint32(b)))
		default:
			return float64(int64(d.order.Uint64(b)))
		}
	case 'u':
		switch d.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(d.order.Uint16(b))
		case 4:
			return float64(d.order.Uint32(b))
		default:
			return float64(d.order.Uint64(b))
		}
	default:
		if d.size == 4 {
			return float64(math.Float32frombits(d.order.Uint32(b)))
		}
		return math.Float64frombits(d.order.Uint64(b))
	}
}
