// Package testutil provides fixtures and stream helpers for decode tests.
package testutil

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/vbatts/tar-split/archive/tar"
)

// Sample contents of the sample_*.csv fixtures.
const (
	Sample1 = "1,foo\n"
	Sample2 = "2,bar\n"
)

//go:embed testdata
var testdata embed.FS

// FS returns the fixture directory as an fs.FS rooted at testdata.
func FS() fs.FS {
	sub, err := fs.Sub(testdata, "testdata")
	if err != nil {
		panic(err)
	}
	return sub
}

// Fixture returns the contents of a fixture file.
func Fixture(tb testing.TB, name string) []byte {
	tb.Helper()
	data, err := fs.ReadFile(FS(), name)
	if err != nil {
		tb.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// WriteFixture copies a fixture into dir and returns its path.
func WriteFixture(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Fixture(tb, name), 0o600); err != nil {
		tb.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// ArchiveEntry describes an entry for the in-memory archive builders.
type ArchiveEntry struct {
	Name string
	Body string
	Dir  bool
}

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// BuildTar returns a tar archive holding entries in order.
func BuildTar(tb testing.TB, entries ...ArchiveEntry) []byte {
	tb.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, ModTime: epoch, Typeflag: tar.TypeReg, Size: int64(len(e.Body))}
		if e.Dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatalf("tar header %s: %v", e.Name, err)
		}
		if !e.Dir {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				tb.Fatalf("tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		tb.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

// BuildZip returns a zip archive holding entries in order.
func BuildZip(tb testing.TB, entries ...ArchiveEntry) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: epoch}
		if e.Dir {
			hdr.Method = zip.Store
			hdr.SetMode(fs.ModeDir | 0o755)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			tb.Fatalf("zip header %s: %v", e.Name, err)
		}
		if !e.Dir {
			if _, err := io.WriteString(w, e.Body); err != nil {
				tb.Fatalf("zip body %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Gzip compresses data as a single gzip member.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data as a single zstd frame.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tb.Fatalf("zstd encoder: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// ErrorReader returns its data and then fails with Err.
type ErrorReader struct {
	R   io.Reader
	Err error
}

// NewErrorReader returns a reader that yields data and then err.
func NewErrorReader(data []byte, err error) *ErrorReader {
	return &ErrorReader{R: bytes.NewReader(data), Err: err}
}

// Read implements io.Reader.
func (e *ErrorReader) Read(p []byte) (int, error) {
	n, err := e.R.Read(p)
	if err == io.EOF {
		return n, e.Err
	}
	return n, err
}

// StutterReader returns at most N bytes per Read and an empty read with a
// nil error before every chunk.
type StutterReader struct {
	R     io.Reader
	N     int
	empty bool
}

// Read implements io.Reader.
func (s *StutterReader) Read(p []byte) (int, error) {
	s.empty = !s.empty
	if s.empty {
		return 0, nil
	}
	if len(p) > s.N {
		p = p[:s.N]
	}
	return s.R.Read(p)
}

// CloseRecorder is an io.Reader that records Close calls.
type CloseRecorder struct {
	io.Reader
	Closed int
}

// NewCloseRecorder wraps data.
func NewCloseRecorder(data []byte) *CloseRecorder {
	return &CloseRecorder{Reader: bytes.NewReader(data)}
}

// Close implements io.Closer.
func (c *CloseRecorder) Close() error {
	c.Closed++
	return nil
}
