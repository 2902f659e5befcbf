package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/testutil"
)

// readEntries drains an archive, returning file contents keyed by name.
func readEntries(t *testing.T, ar ArchiveReader) (map[string]string, []string) {
	t.Helper()
	files := make(map[string]string)
	var dirs []string
	for {
		e, err := ar.Next()
		if err == io.EOF {
			return files, dirs
		}
		require.NoError(t, err)
		if e.IsDir() {
			dirs = append(dirs, e.Name)
			continue
		}
		data, err := io.ReadAll(ar)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), e.Size, e.Name)
		files[e.Name] = string(data)
	}
}

func TestArchiveReaders(t *testing.T) {
	t.Parallel()

	flat := map[string]string{"sample_1.csv": testutil.Sample1, "sample_2.csv": testutil.Sample2}
	tests := []struct {
		fixture string
		format  format.Format
		files   map[string]string
		dirs    []string
	}{
		{"samples.tar", format.Tar, flat, nil},
		{"samples.zip", format.Zip, flat, nil},
		{"samples.zip", format.JAR, flat, nil},
		{"samples.7z", format.SevenZ, flat, nil},
		{"samples.ar", format.AR, flat, nil},
		{
			"samples.cpio", format.CPIO,
			map[string]string{"dir/sample_1.csv": testutil.Sample1, "dir/sample_2.csv": testutil.Sample2},
			[]string{"dir"},
		},
		{
			"samples_dir.tar", format.Tar,
			map[string]string{"dir/sub/sample_1.csv": testutil.Sample1, "dir/sub/sample_2.csv": testutil.Sample2},
			[]string{"dir/", "dir/sub/"},
		},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.format, tt.fixture), func(t *testing.T) {
			t.Parallel()

			c := New()
			ar, err := c.NewArchiveReader(tt.format, bytes.NewReader(testutil.Fixture(t, tt.fixture)))
			require.NoError(t, err)
			defer ar.Release()
			assert.Equal(t, tt.format, ar.Format())

			files, dirs := readEntries(t, ar)
			assert.Equal(t, tt.files, files)
			assert.Equal(t, tt.dirs, dirs)

			// exhausted archives stay exhausted
			_, err = ar.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestArchiveReaderAutoDetect(t *testing.T) {
	t.Parallel()

	c := New()
	for _, fixture := range []string{"samples.tar", "samples.zip", "samples.ar", "samples.7z"} {
		ar, err := c.NewArchiveReader(format.AutoDetect, bytes.NewReader(testutil.Fixture(t, fixture)))
		require.NoError(t, err, fixture)
		files, _ := readEntries(t, ar)
		ar.Release()
		assert.Len(t, files, 2, fixture)
	}

	_, err := c.NewArchiveReader(format.AutoDetect, bytes.NewReader(testutil.Fixture(t, "sample_1.csv.gz")))
	require.ErrorIs(t, err, ErrDetection)
}

func TestArchiveReaderSkipsUnreadContent(t *testing.T) {
	t.Parallel()

	c := New()
	for _, f := range []format.Format{format.Tar, format.Zip} {
		var data []byte
		entries := []testutil.ArchiveEntry{{Name: "a", Body: "aaaa"}, {Name: "b", Body: "bbbb"}}
		if f == format.Tar {
			data = testutil.BuildTar(t, entries...)
		} else {
			data = testutil.BuildZip(t, entries...)
		}
		ar, err := c.NewArchiveReader(f, bytes.NewReader(data))
		require.NoError(t, err)

		_, err = ar.Next()
		require.NoError(t, err)
		e, err := ar.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", e.Name)
		got, err := io.ReadAll(ar)
		require.NoError(t, err)
		assert.Equal(t, "bbbb", string(got))
		ar.Release()
	}
}

func TestArchiveReaderEmptyInput(t *testing.T) {
	t.Parallel()

	c := New()
	for _, f := range []format.Format{format.Tar, format.Zip, format.SevenZ, format.AR, format.CPIO} {
		ar, err := c.NewArchiveReader(f, bytes.NewReader(nil))
		require.NoError(t, err, f)
		_, err = ar.Next()
		assert.Equal(t, io.EOF, err, f)
		ar.Release()
	}
}

func TestArchiveReaderFormatMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture string
		format  format.Format
	}{
		// 234 bytes is shorter than one tar block
		{"samples.zip", format.Tar},
		{"samples.tar", format.Zip},
		{"samples.tar", format.AR},
		{"samples.tar", format.CPIO},
		{"samples.tar", format.SevenZ},
		{"samples.tar.gz", format.Tar},
	}
	for _, tt := range tests {
		c := New()
		ar, err := c.NewArchiveReader(tt.format, bytes.NewReader(testutil.Fixture(t, tt.fixture)))
		require.NoError(t, err, "construction is lazy for %s", tt.format)
		_, err = ar.Next()
		require.ErrorIs(t, err, ErrFormatMismatch, "%s over %s", tt.format, tt.fixture)
		ar.Release()
	}
}

func TestArchiveReaderUnsupported(t *testing.T) {
	t.Parallel()

	c := New()
	for _, f := range []format.Format{format.ARJ, format.Dump, format.Gzip, "rar"} {
		_, err := c.NewArchiveReader(f, bytes.NewReader(nil))
		require.ErrorIs(t, err, ErrUnsupportedFormat, f)
	}
}

func TestArchiveReaderBufferLimit(t *testing.T) {
	t.Parallel()

	c := New(WithMaxBufferSize(64))
	ar, err := c.NewArchiveReader(format.Zip, bytes.NewReader(testutil.Fixture(t, "samples.zip")))
	require.NoError(t, err)
	_, err = ar.Next()
	require.ErrorIs(t, err, ErrTooLarge)
	require.NotErrorIs(t, err, ErrFormatMismatch)
}

func TestArchiveReaderUpstreamError(t *testing.T) {
	t.Parallel()

	tarData := testutil.Fixture(t, "samples.tar")
	failure := fmt.Errorf("%w: disk gone", ErrIO)

	c := New()
	ar, err := c.NewArchiveReader(format.Tar, testutil.NewErrorReader(tarData[:700], failure))
	require.NoError(t, err)
	_, err = ar.Next()
	require.NoError(t, err)
	_, err = ar.Next()
	require.ErrorIs(t, err, ErrIO)
	require.NotErrorIs(t, err, ErrFormatMismatch)
}

func TestCompressorReaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture string
		format  format.Format
	}{
		{"sample_1.csv.gz", format.Gzip},
		{"sample_1.csv.bz2", format.Bzip2},
		{"sample_1.csv.xz", format.XZ},
		{"sample_1.csv.lzma", format.LZMA},
		{"sample_1.csv.zst", format.Zstd},
		{"sample_1.csv.lz4", format.LZ4Framed},
		{"sample_1.csv.deflate", format.Deflate},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			c := New()
			for _, f := range []format.Format{tt.format, format.AutoDetect} {
				r, err := c.NewCompressorReader(f, bytes.NewReader(testutil.Fixture(t, tt.fixture)), true)
				require.NoError(t, err)
				assert.Equal(t, tt.format, r.Format())
				got, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, testutil.Sample1, string(got))
				r.Release()
				r.Release()
			}
		})
	}
}

func TestCompressorReadersSignatureless(t *testing.T) {
	t.Parallel()

	payload := []byte(testutil.Sample1 + testutil.Sample2)

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, err := bw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	var framed bytes.Buffer
	sw := s2.NewWriter(&framed, s2.WriterSnappyCompat())
	_, err = sw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, sw.Close())

	tests := []struct {
		format format.Format
		data   []byte
	}{
		{format.Brotli, br.Bytes()},
		{format.SnappyRaw, s2.EncodeSnappy(nil, payload)},
		{format.SnappyFramed, framed.Bytes()},
	}
	c := New()
	for _, tt := range tests {
		r, err := c.NewCompressorReader(tt.format, bytes.NewReader(tt.data), true)
		require.NoError(t, err, tt.format)
		got, err := io.ReadAll(r)
		require.NoError(t, err, tt.format)
		assert.Equal(t, payload, got, tt.format)
		r.Release()
	}

	// framed snappy carries a stream identifier
	got, err := DetectCompressor(AsPeeker(bytes.NewReader(framed.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, format.SnappyFramed, got)
}

func TestCompressorConcatenation(t *testing.T) {
	t.Parallel()

	both := testutil.Sample1 + testutil.Sample2
	tests := []struct {
		fixture string
		format  format.Format
		single  string
	}{
		{"concatenated.csv.gz", format.Gzip, testutil.Sample1},
		{"concatenated.csv.xz", format.XZ, testutil.Sample1},
		{"concatenated.csv.bz2", format.Bzip2, testutil.Sample1},
		// always concatenated
		{"concatenated.csv.zst", format.Zstd, both},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			c := New()
			r, err := c.NewCompressorReader(tt.format, bytes.NewReader(testutil.Fixture(t, tt.fixture)), true)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, both, string(got))
			r.Release()

			r, err = c.NewCompressorReader(tt.format, bytes.NewReader(testutil.Fixture(t, tt.fixture)), false)
			require.NoError(t, err)
			got, err = io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.single, string(got))
			r.Release()
		})
	}
}

func TestCompressorStacksOverArchive(t *testing.T) {
	t.Parallel()

	c := New()
	for _, tt := range []struct {
		fixture string
		format  format.Format
	}{
		{"samples.tar.gz", format.Gzip},
		{"samples.tar.bz2", format.Bzip2},
		{"samples.tar.xz", format.XZ},
		{"samples.tar.lzma", format.LZMA},
		{"samples.tar.zst", format.Zstd},
		{"samples.tar.lz4", format.LZ4Framed},
	} {
		cr, err := c.NewCompressorReader(tt.format, bytes.NewReader(testutil.Fixture(t, tt.fixture)), true)
		require.NoError(t, err, tt.fixture)
		ar, err := c.NewArchiveReader(format.Tar, cr)
		require.NoError(t, err)
		files, _ := readEntries(t, ar)
		assert.Equal(t, map[string]string{"sample_1.csv": testutil.Sample1, "sample_2.csv": testutil.Sample2}, files, tt.fixture)
		ar.Release()
		cr.Release()
	}
}

func TestCompressorFormatMismatch(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte(testutil.Sample1), 8)
	c := New()
	for _, f := range []format.Format{format.Gzip, format.XZ, format.Zstd, format.Bzip2, format.Deflate, format.LZ4Framed} {
		r, err := c.NewCompressorReader(f, bytes.NewReader(plain), true)
		if err == nil {
			// some decoders only look at the data on first read
			_, err = io.ReadAll(r)
			r.Release()
		}
		require.ErrorIs(t, err, ErrFormatMismatch, f)
	}

	_, err := c.NewCompressorReader(format.Gzip, bytes.NewReader(nil), true)
	require.ErrorIs(t, err, ErrFormatMismatch)
}

func TestCompressorUnsupported(t *testing.T) {
	t.Parallel()

	c := New()
	for _, f := range []format.Format{format.Pack200, format.Z, format.Tar, "rar"} {
		_, err := c.NewCompressorReader(f, bytes.NewReader(nil), true)
		require.ErrorIs(t, err, ErrUnsupportedFormat, f)
	}

	_, err := c.NewCompressorReader(format.AutoDetect, bytes.NewReader([]byte(testutil.Sample1)), true)
	require.ErrorIs(t, err, ErrDetection)
}

func TestCompressorUpstreamError(t *testing.T) {
	t.Parallel()

	data := testutil.Fixture(t, "samples.tar.gz")
	failure := fmt.Errorf("%w: connection reset", ErrIO)

	c := New()
	r, err := c.NewCompressorReader(format.Gzip, testutil.NewErrorReader(data[:len(data)/2], failure), true)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	require.ErrorIs(t, err, ErrIO)
	require.NotErrorIs(t, err, ErrFormatMismatch)
	r.Release()
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify(format.Tar, nil))
	assert.Equal(t, io.EOF, classify(format.Tar, io.EOF))

	err := classify(format.Tar, errors.New("bad header"))
	require.ErrorIs(t, err, ErrFormatMismatch)
	assert.Contains(t, err.Error(), "tar")

	io1 := fmt.Errorf("%w: x", ErrIO)
	assert.Same(t, io1, classify(format.Tar, io1))
	assert.ErrorIs(t, classify(format.Zip, io.ErrUnexpectedEOF), ErrFormatMismatch)
}

func TestDecoderOptions(t *testing.T) {
	t.Parallel()

	c := New(WithMaxDecoderMemory(1<<20), WithDecoderConcurrency(2), WithDecoderLowmem(true))
	r, err := c.NewCompressorReader(format.Zstd, bytes.NewReader(testutil.Zstd(t, []byte("abc"))), true)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	r.Release()
}
