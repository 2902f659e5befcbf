package unpack

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/unpack/internal/unpacktype"
)

// Errors re-exported from unpacktype.
var (
	// ErrDetection is returned when auto-detection cannot classify a file as
	// either an archive or a compressed stream.
	ErrDetection = unpacktype.ErrDetection

	// ErrFormatMismatch is returned when a codec rejects the bytes of a file.
	// It is usually reported on the first entry or the first read rather
	// than when the chain is built.
	ErrFormatMismatch = unpacktype.ErrFormatMismatch

	// ErrUnsupportedFormat is returned when a format string does not resolve,
	// or when a known format has no codec.
	ErrUnsupportedFormat = unpacktype.ErrUnsupportedFormat

	// ErrIO is returned when a raw source fails to open, read, or close.
	ErrIO = unpacktype.ErrIO

	// ErrTooLarge is returned when a stream that must be buffered in memory
	// exceeds the codec limit.
	ErrTooLarge = unpacktype.ErrTooLarge
)

var (
	// ErrNoCurrentFile is returned by FileInput.Poll before the first
	// NextFile call, or after NextFile reported exhaustion.
	ErrNoCurrentFile = errors.New("unpack: no current file")

	// ErrClosed is returned when a closed Provider is used.
	ErrClosed = errors.New("unpack: provider closed")

	// ErrInvalidConfig is returned when a configuration document cannot be
	// decoded.
	ErrInvalidConfig = errors.New("unpack: invalid config")
)

// tagIO marks err as a transport failure unless it is io.EOF or already
// carries one of the decode sentinels.
func tagIO(err error) error {
	switch {
	case err == nil, err == io.EOF,
		errors.Is(err, ErrIO),
		errors.Is(err, ErrFormatMismatch),
		errors.Is(err, ErrDetection),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrTooLarge):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}
