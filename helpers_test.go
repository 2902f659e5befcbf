package unpack

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/unpack/codec"
	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/testutil"
)

// fixtureSource returns a ReaderSource over the named fixtures.
func fixtureSource(t *testing.T, names ...string) *ReaderSource {
	t.Helper()
	readers := make([]io.Reader, len(names))
	for i, name := range names {
		readers[i] = bytes.NewReader(testutil.Fixture(t, name))
	}
	return NewReaderSource(readers...)
}

// drain reads every stream from p until exhaustion.
func drain(t *testing.T, p *Provider) []string {
	t.Helper()
	var out []string
	for {
		r, err := p.OpenNext()
		if err == io.EOF {
			require.Nil(t, r)
			return out
		}
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		out = append(out, string(data))
	}
}

// countingFactory wraps a Factory and counts constructed and released stages.
type countingFactory struct {
	codec.Factory
	archives    int
	compressors int
	released    int
}

func newCountingFactory() *countingFactory {
	return &countingFactory{Factory: codec.New()}
}

func (f *countingFactory) NewArchiveReader(fm format.Format, r io.Reader) (codec.ArchiveReader, error) {
	ar, err := f.Factory.NewArchiveReader(fm, r)
	if err != nil {
		return nil, err
	}
	f.archives++
	return &countedArchive{ArchiveReader: ar, released: &f.released}, nil
}

func (f *countingFactory) NewCompressorReader(fm format.Format, r io.Reader, concatenated bool) (codec.CompressorReader, error) {
	cr, err := f.Factory.NewCompressorReader(fm, r, concatenated)
	if err != nil {
		return nil, err
	}
	f.compressors++
	return &countedCompressor{CompressorReader: cr, released: &f.released}, nil
}

type countedArchive struct {
	codec.ArchiveReader
	released *int
}

func (c *countedArchive) Release() {
	*c.released++
	c.ArchiveReader.Release()
}

type countedCompressor struct {
	codec.CompressorReader
	released *int
}

func (c *countedCompressor) Release() {
	*c.released++
	c.CompressorReader.Release()
}

// fakeArchive is an in-memory ArchiveReader that counts Next calls.
type fakeArchive struct {
	entries []codec.Entry
	bodies  []string
	err     error // returned once entries run out, instead of io.EOF
	idx     int
	calls   int
	cur     *strings.Reader
}

func (f *fakeArchive) Next() (*codec.Entry, error) {
	f.calls++
	if f.idx >= len(f.entries) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	e := f.entries[f.idx]
	f.cur = strings.NewReader(f.bodies[f.idx])
	f.idx++
	return &e, nil
}

func (f *fakeArchive) Read(p []byte) (int, error) {
	if f.cur == nil {
		return 0, io.EOF
	}
	return f.cur.Read(p)
}

func (f *fakeArchive) Format() format.Format { return format.Tar }

func (f *fakeArchive) Release() {}
