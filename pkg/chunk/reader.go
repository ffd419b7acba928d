package chunk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// Range is a half-open index interval along one axis.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of indices in the range.
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Reader reads a rectangular subset of an array, converting every element
// to float64. Results are in row-major order over the requested ranges.
type Reader interface {
	ReadFloat64(ctx context.Context, path string, ranges []Range) ([]float64, error)
}

// FSReader reads arrays stored in an fs.FS rooted at the store.
type FSReader struct {
	fsys fs.FS
}

// NewFSReader creates a reader over a store filesystem.
func NewFSReader(fsys fs.FS) *FSReader {
	return &FSReader{fsys: fsys}
}

// ReadFloat64 implements Reader. Missing chunks read as the fill value.
func (r *FSReader) ReadFloat64(ctx context.Context, arrayPath string, ranges []Range) ([]float64, error) {
	l, err := openLayout(r.fsys, arrayPath)
	if err != nil {
		return nil, err
	}

	rank := len(l.shape)
	if len(ranges) != rank {
		return nil, fmt.Errorf("%w: got %d ranges for %d dimensions", ErrDimensionMismatch, len(ranges), rank)
	}

	counts := make([]uint64, rank)
	total := uint64(1)
	for i, rg := range ranges {
		if rg.Start > rg.End || rg.End > l.shape[i] {
			return nil, fmt.Errorf("%w: axis %d range [%d, %d) with length %d", ErrOutOfBounds, i, rg.Start, rg.End, l.shape[i])
		}
		counts[i] = rg.Len()
		total *= counts[i]
	}

	out := make([]float64, total)
	if total == 0 {
		return out, nil
	}

	outStrides := strides(counts, false)
	chunkStrides := strides(l.chunks, l.fortran)
	chunkElems := uint64(1)
	for _, c := range l.chunks {
		chunkElems *= c
	}

	first := make([]uint64, rank)
	last := make([]uint64, rank)
	for i, rg := range ranges {
		first[i] = rg.Start / l.chunks[i]
		last[i] = (rg.End - 1) / l.chunks[i]
	}

	lo := make([]uint64, rank)
	hi := make([]uint64, rank)
	var readErr error
	forEach(first, inclusive(last), func(cidx []uint64) bool {
		if err := ctx.Err(); err != nil {
			readErr = err
			return false
		}

		buf, err := r.readChunk(l, cidx)
		if err != nil {
			readErr = err
			return false
		}
		if buf != nil && uint64(len(buf)) < chunkElems*uint64(l.dtype.size) {
			readErr = fmt.Errorf("%w: %s has %d bytes, expected %d", ErrCorrupted, l.chunkKey(cidx), len(buf), chunkElems*uint64(l.dtype.size))
			return false
		}

		for i, rg := range ranges {
			origin := cidx[i] * l.chunks[i]
			lo[i] = max(rg.Start, origin)
			hi[i] = min(rg.End, origin+l.chunks[i])
		}

		forEach(lo, hi, func(g []uint64) bool {
			var off, dst uint64
			for i := range g {
				off += (g[i] - cidx[i]*l.chunks[i]) * chunkStrides[i]
				dst += (g[i] - ranges[i].Start) * outStrides[i]
			}
			if buf == nil {
				out[dst] = l.fill
			} else {
				out[dst] = l.dtype.decode(buf, int(off)*l.dtype.size)
			}
			return true
		})
		return true
	})
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

// readChunk returns decoded chunk bytes, or nil when the chunk is absent.
func (r *FSReader) readChunk(l *layout, cidx []uint64) ([]byte, error) {
	key := l.chunkKey(cidx)
	raw, err := fs.ReadFile(r.fsys, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", key, err)
	}
	buf, err := l.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chunk %s: %w", key, err)
	}
	return buf, nil
}

// strides returns element strides for row-major (or column-major) layout.
func strides(shape []uint64, fortran bool) []uint64 {
	s := make([]uint64, len(shape))
	acc := uint64(1)
	if fortran {
		for i := range shape {
			s[i] = acc
			acc *= shape[i]
		}
		return s
	}
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func inclusive(last []uint64) []uint64 {
	hi := make([]uint64, len(last))
	for i, v := range last {
		hi[i] = v + 1
	}
	return hi
}

// forEach visits every index in the box [lo, hi) in row-major order until fn
// returns false. A zero-rank box is visited once.
func forEach(lo, hi []uint64, fn func([]uint64) bool) {
	for i := range lo {
		if lo[i] >= hi[i] {
			return
		}
	}
	idx := make([]uint64, len(lo))
	copy(idx, lo)
	for {
		if !fn(idx) {
			return
		}
		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < hi[d] {
				break
			}
			idx[d] = lo[d]
		}
		if d < 0 {
			return
		}
	}
}
