package chunk

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoder is safe for concurrent DecodeAll calls.
var zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// decompressor turns stored chunk bytes into raw element bytes.
type decompressor func([]byte) ([]byte, error)

func identity(b []byte) ([]byte, error) { return b, nil }

// codecFor returns the decompressor for a compressor id; "" means none.
func codecFor(id string) (decompressor, error) {
	switch id {
	case "":
		return identity, nil
	case "zlib":
		return func(b []byte) ([]byte, error) {
			r, err := zlib.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, fmt.Errorf("failed to open zlib stream: %w", err)
			}
			defer r.Close()
			return io.ReadAll(r)
		}, nil
	case "gzip":
		return func(b []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, fmt.Errorf("failed to open gzip stream: %w", err)
			}
			defer r.Close()
			return io.ReadAll(r)
		}, nil
	case "zstd":
		return func(b []byte) ([]byte, error) {
			return zstdDecoder.DecodeAll(b, nil)
		}, nil
	case "crc32c":
		return func(b []byte) ([]byte, error) {
			if len(b) < 4 {
				return nil, fmt.Errorf("%w: crc32c chunk shorter than checksum", ErrCorrupted)
			}
			body, sum := b[:len(b)-4], binary.LittleEndian.Uint32(b[len(b)-4:])
			if crc32.Checksum(body, castagnoli) != sum {
				return nil, fmt.Errorf("%w: crc32c checksum mismatch", ErrCorrupted)
			}
			return body, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupported, id)
	}
}

// chain applies stages in order.
func chain(stages []decompressor) decompressor {
	if len(stages) == 0 {
		return identity
	}
	return func(b []byte) ([]byte, error) {
		var err error
		for _, s := range stages {
			if b, err = s(b); err != nil {
				return nil, err
			}
		}
		return b, nil
	}
}
