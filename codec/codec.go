// Package codec binds format tokens to archive and compression readers.
//
// The decode pipeline never parses container layouts or compressed frames
// itself; it asks a [Factory] for a reader per stage. [Codecs] is the default
// Factory, backed by vbatts/tar-split, compress/bzip2, klauspost/compress,
// pierrec/lz4, ulikunitz/xz, andybalholm/brotli, blakesmith/ar,
// cavaliergopher/cpio and bodgit/sevenzip. A Codecs value is safe for
// concurrent use; the readers it returns are not.
//
// Passing [format.AutoDetect] to either constructor probes the stream's
// leading bytes. The stream must then be a [Peeker] (for example a
// *bufio.Reader) so that probing does not consume data; other readers are
// wrapped in a bufio.Reader.
package codec

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/file"
	"github.com/meigma/unpack/internal/unpacktype"
)

// Sentinel errors re-exported from unpacktype.
var (
	ErrDetection         = unpacktype.ErrDetection
	ErrFormatMismatch    = unpacktype.ErrFormatMismatch
	ErrUnsupportedFormat = unpacktype.ErrUnsupportedFormat
	ErrIO                = unpacktype.ErrIO
	ErrTooLarge          = unpacktype.ErrTooLarge
)

// DefaultMaxBufferSize is the default limit for formats that must be read
// fully into memory before decoding (256MB).
const DefaultMaxBufferSize = 256 << 20

// Entry describes one archive member.
type Entry struct {
	Name    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Mode.IsDir()
}

// ArchiveReader reads archive members in order.
//
// Next advances to the next member and returns io.EOF after the last one.
// Read reads the content of the member most recently returned by Next.
// Release frees codec resources; it never closes the upstream reader.
type ArchiveReader interface {
	io.Reader
	Next() (*Entry, error)
	Format() format.Format
	Release()
}

// CompressorReader is a transparently decompressing stream.
//
// Release frees codec resources; it never closes the upstream reader.
type CompressorReader interface {
	io.Reader
	Format() format.Format
	Release()
}

// Factory creates decode stages over an upstream reader.
type Factory interface {
	// NewArchiveReader returns a reader of the archive format f over r.
	// If f is format.AutoDetect the format is detected from r.
	NewArchiveReader(f format.Format, r io.Reader) (ArchiveReader, error)

	// NewCompressorReader returns a decompressing reader of format f over r.
	// If concatenated is true, back-to-back compressed frames are decoded as
	// one continuous stream. If f is format.AutoDetect the format is
	// detected from r.
	NewCompressorReader(f format.Format, r io.Reader, concatenated bool) (CompressorReader, error)
}

// Codecs is the default Factory.
type Codecs struct {
	maxBufferSize uint64
	zstdOpts      []file.ZstdOption
	zstd          *file.ZstdPool
}

// Interface compliance.
var _ Factory = (*Codecs)(nil)

// New creates a Codecs factory.
func New(opts ...Option) *Codecs {
	c := &Codecs{maxBufferSize: DefaultMaxBufferSize}
	for _, opt := range opts {
		opt(c)
	}
	c.zstd = file.NewZstdPool(c.zstdOpts...)
	return c
}

// NewArchiveReader implements Factory.
func (c *Codecs) NewArchiveReader(f format.Format, r io.Reader) (ArchiveReader, error) {
	if f == format.AutoDetect {
		p := AsPeeker(r)
		detected, err := DetectArchive(p)
		if err != nil {
			return nil, err
		}
		f, r = detected, p
	}

	switch format.Normalize(string(f)) {
	case format.Tar:
		return newTarReader(r), nil
	case format.Zip, format.JAR:
		return c.newZipReader(format.Normalize(string(f)), r)
	case format.SevenZ:
		return c.newSevenZipReader(r)
	case format.AR:
		return newARReader(r), nil
	case format.CPIO:
		return newCPIOReader(r), nil
	case format.ARJ, format.Dump:
		return nil, fmt.Errorf("%w: no codec for archive format %s", ErrUnsupportedFormat, f)
	default:
		return nil, fmt.Errorf("%w: %s is not an archive format", ErrUnsupportedFormat, f)
	}
}

// NewCompressorReader implements Factory.
func (c *Codecs) NewCompressorReader(f format.Format, r io.Reader, concatenated bool) (CompressorReader, error) {
	if f == format.AutoDetect {
		p := AsPeeker(r)
		detected, err := DetectCompressor(p)
		if err != nil {
			return nil, err
		}
		f, r = detected, p
	}

	f = format.Normalize(string(f))
	dec, release, err := c.newDecompressor(f, r, concatenated)
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: empty stream", ErrFormatMismatch, f)
	}
	if err != nil {
		return nil, classify(f, err)
	}
	return &compressorReader{r: dec, format: f, release: release}, nil
}

// classify tags codec failures as format mismatches. io.EOF, transport
// failures, and already-classified errors pass through.
func classify(f format.Format, err error) error {
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, ErrIO),
		errors.Is(err, ErrFormatMismatch),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrTooLarge):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrFormatMismatch, f, err)
	}
}

type compressorReader struct {
	r       io.Reader
	format  format.Format
	release func()
}

func (c *compressorReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	return n, classify(c.format, err)
}

func (c *compressorReader) Format() format.Format {
	return c.format
}

func (c *compressorReader) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}
