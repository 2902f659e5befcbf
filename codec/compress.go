package codec

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/sizing"
)

// newDecompressor returns a decoder for f over r and a release function.
// The release function is never nil when err is nil.
//
// concatenated only changes behavior for gzip, bzip2 and xz. zstd and lz4
// decoders always read concatenated frames.
func (c *Codecs) newDecompressor(f format.Format, r io.Reader, concatenated bool) (io.Reader, func(), error) {
	switch f {
	case format.Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		zr.Multistream(concatenated)
		return zr, func() { _ = zr.Close() }, nil //nolint:errcheck // gzip Close only reports prior errors

	case format.Bzip2:
		if !concatenated {
			r = newBzip2FirstStream(r)
		}
		return bzip2.NewReader(r), noRelease, nil

	case format.Deflate:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil //nolint:errcheck // zlib Close only reports prior errors

	case format.LZMA:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return lr, noRelease, nil

	case format.XZ:
		xr, err := xz.ReaderConfig{SingleStream: !concatenated}.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, noRelease, nil

	case format.SnappyFramed:
		// S2 stream readers accept the Snappy framing format
		return s2.NewReader(r), noRelease, nil

	case format.SnappyRaw:
		return &deferredReader{open: func() (io.Reader, error) {
			data, err := sizing.ReadAllWithLimit(r, c.maxBufferSize, ErrTooLarge)
			if err != nil {
				return nil, err
			}
			// S2 block decoding is a superset of Snappy block decoding
			out, err := s2.Decode(nil, data)
			if err != nil {
				return nil, err
			}
			return bytes.NewReader(out), nil
		}}, noRelease, nil

	case format.Zstd:
		dec, release, err := c.zstd.Acquire(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, release, nil

	case format.LZ4Framed:
		return lz4.NewReader(r), noRelease, nil

	case format.Brotli:
		return brotli.NewReader(r), noRelease, nil

	case format.Pack200, format.Z:
		return nil, nil, fmt.Errorf("%w: no codec for compressor format %s", ErrUnsupportedFormat, f)

	default:
		return nil, nil, fmt.Errorf("%w: %s is not a compressor format", ErrUnsupportedFormat, f)
	}
}

func noRelease() {}

// deferredReader builds its source on the first Read.
type deferredReader struct {
	open func() (io.Reader, error)
	r    io.Reader
	err  error
}

func (d *deferredReader) Read(p []byte) (int, error) {
	if d.r == nil && d.err == nil {
		d.r, d.err = d.open()
	}
	if d.err != nil {
		return 0, d.err
	}
	return d.r.Read(p)
}
