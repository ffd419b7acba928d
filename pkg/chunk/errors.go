// Package chunk reads rectangular subsets of Zarr arrays as float64
package chunk

import "errors"

var (
	// ErrDimensionMismatch indicates a range count that differs from the array rank
	ErrDimensionMismatch = errors.New("chunk: range count does not match array dimensionality")

	// ErrOutOfBounds indicates a range outside the array shape
	ErrOutOfBounds = errors.New("chunk: range out of bounds")

	// ErrUnsupported indicates a dtype, codec or layout this reader cannot decode
	ErrUnsupported = errors.New("chunk: unsupported array encoding")

	// ErrCorrupted indicates a chunk whose decoded size does not match the chunk shape
	ErrCorrupted = errors.New("chunk: corrupted chunk")
)
