// Package unpacktype defines sentinel errors shared by the unpack package and
// its subpackages. This avoids circular imports between unpack, format, and codec.
package unpacktype

import "errors"

// Sentinel errors for decode operations.
var (
	// ErrDetection is returned when auto-detection cannot classify a stream
	// as either an archive or a compressed stream.
	ErrDetection = errors.New("unpack: failed to detect a file format")

	// ErrFormatMismatch is returned when a codec rejects the bytes it was given.
	ErrFormatMismatch = errors.New("unpack: data does not match format")

	// ErrUnsupportedFormat is returned when a format string does not resolve
	// to a known chain, or when a known format has no available codec.
	ErrUnsupportedFormat = errors.New("unpack: unsupported format")

	// ErrIO is returned when the underlying byte source fails.
	ErrIO = errors.New("unpack: read failed")

	// ErrTooLarge is returned when a stream that must be buffered in memory
	// (zip, 7z, raw snappy) exceeds the configured limit.
	ErrTooLarge = errors.New("unpack: stream exceeds buffering limit")
)
