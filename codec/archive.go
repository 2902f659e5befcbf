package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/bodgit/sevenzip"
	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zip"
	"github.com/vbatts/tar-split/archive/tar"

	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/sizing"
)

// tarReader adapts the tar-split tar reader.
type tarReader struct {
	tr *tar.Reader
}

func newTarReader(r io.Reader) *tarReader {
	return &tarReader{tr: tar.NewReader(r)}
}

func (t *tarReader) Next() (*Entry, error) {
	hdr, err := t.tr.Next()
	if err != nil {
		return nil, classify(format.Tar, err)
	}
	return &Entry{
		Name:    hdr.Name,
		Size:    hdr.Size,
		Mode:    hdr.FileInfo().Mode(),
		ModTime: hdr.ModTime,
	}, nil
}

func (t *tarReader) Read(p []byte) (int, error) {
	n, err := t.tr.Read(p)
	return n, classify(format.Tar, err)
}

func (t *tarReader) Format() format.Format { return format.Tar }

func (t *tarReader) Release() {}

// arMagic is the global header of a Unix ar archive.
const arMagic = "!<arch>\n"

// arReader adapts blakesmith/ar. The global header is checked on the first
// Next so that an empty stream reads as an empty archive.
type arReader struct {
	src io.Reader
	ar  *ar.Reader
}

func newARReader(r io.Reader) *arReader {
	return &arReader{src: r}
}

func (a *arReader) Next() (*Entry, error) {
	if a.ar == nil {
		magic := make([]byte, len(arMagic))
		if _, err := io.ReadFull(a.src, magic); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: ar: truncated global header", ErrFormatMismatch)
			}
			return nil, err
		}
		if string(magic) != arMagic {
			return nil, fmt.Errorf("%w: ar: bad global header", ErrFormatMismatch)
		}
		a.ar = ar.NewReader(io.MultiReader(bytes.NewReader(magic), a.src))
	}

	for {
		hdr, err := a.ar.Next()
		if err != nil {
			return nil, classify(format.AR, err)
		}
		name := strings.TrimSuffix(strings.TrimSpace(hdr.Name), "/")
		// GNU symbol and long-name tables, BSD symbol table
		if name == "" || name == "/" || strings.HasPrefix(name, "__.SYMDEF") {
			continue
		}
		return &Entry{
			Name:    name,
			Size:    hdr.Size,
			Mode:    fs.FileMode(hdr.Mode).Perm(), //nolint:gosec // mode bits are masked
			ModTime: hdr.ModTime,
		}, nil
	}
}

func (a *arReader) Read(p []byte) (int, error) {
	if a.ar == nil {
		return 0, io.EOF
	}
	n, err := a.ar.Read(p)
	return n, classify(format.AR, err)
}

func (a *arReader) Format() format.Format { return format.AR }

func (a *arReader) Release() {}

// cpioReader adapts cavaliergopher/cpio (SVR4 "newc" and "crc" layouts).
type cpioReader struct {
	cr *cpio.Reader
}

func newCPIOReader(r io.Reader) *cpioReader {
	return &cpioReader{cr: cpio.NewReader(r)}
}

func (c *cpioReader) Next() (*Entry, error) {
	hdr, err := c.cr.Next()
	if err != nil {
		return nil, classify(format.CPIO, err)
	}
	return &Entry{
		Name:    hdr.Name,
		Size:    hdr.Size,
		Mode:    hdr.FileInfo().Mode(),
		ModTime: hdr.ModTime,
	}, nil
}

func (c *cpioReader) Read(p []byte) (int, error) {
	n, err := c.cr.Read(p)
	return n, classify(format.CPIO, err)
}

func (c *cpioReader) Format() format.Format { return format.CPIO }

func (c *cpioReader) Release() {}

// member is one entry of an archive that is read through a central directory.
type member struct {
	entry Entry
	open  func() (io.ReadCloser, error)
}

// memberArchive streams members of a random-access archive (zip, jar, 7z)
// whose bytes were buffered from the upstream reader. Loading is deferred to
// the first Next, and each member is opened on its first Read, so entries
// that are skipped are never decompressed.
type memberArchive struct {
	format  format.Format
	load    func() ([]member, error)
	members []member
	loaded  bool
	next    int
	cur     *member
	rc      io.ReadCloser
}

func (m *memberArchive) Next() (*Entry, error) {
	m.closeMember()
	if !m.loaded {
		members, err := m.load()
		if err != nil {
			return nil, classify(m.format, err)
		}
		m.members, m.loaded = members, true
	}
	if m.next >= len(m.members) {
		m.cur = nil
		return nil, io.EOF
	}
	m.cur = &m.members[m.next]
	m.next++
	entry := m.cur.entry
	return &entry, nil
}

func (m *memberArchive) Read(p []byte) (int, error) {
	if m.cur == nil {
		return 0, io.EOF
	}
	if m.rc == nil {
		rc, err := m.cur.open()
		if err != nil {
			return 0, classify(m.format, err)
		}
		m.rc = rc
	}
	n, err := m.rc.Read(p)
	return n, classify(m.format, err)
}

func (m *memberArchive) Format() format.Format { return m.format }

func (m *memberArchive) Release() {
	m.closeMember()
	m.cur = nil
	m.members = nil
}

func (m *memberArchive) closeMember() {
	if m.rc != nil {
		_ = m.rc.Close() //nolint:errcheck // member readers hold no upstream resources
		m.rc = nil
	}
}

func (c *Codecs) newZipReader(f format.Format, r io.Reader) (*memberArchive, error) {
	return &memberArchive{
		format: f,
		load: func() ([]member, error) {
			data, err := sizing.ReadAllWithLimit(r, c.maxBufferSize, ErrTooLarge)
			if err != nil {
				return nil, err
			}
			if len(data) == 0 {
				return nil, nil
			}
			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, err
			}
			members := make([]member, 0, len(zr.File))
			for _, zf := range zr.File {
				info := zf.FileInfo()
				members = append(members, member{
					entry: Entry{
						Name:    zf.Name,
						Size:    info.Size(),
						Mode:    info.Mode(),
						ModTime: zf.Modified,
					},
					open: zf.Open,
				})
			}
			return members, nil
		},
	}, nil
}

func (c *Codecs) newSevenZipReader(r io.Reader) (*memberArchive, error) {
	return &memberArchive{
		format: format.SevenZ,
		load: func() ([]member, error) {
			data, err := sizing.ReadAllWithLimit(r, c.maxBufferSize, ErrTooLarge)
			if err != nil {
				return nil, err
			}
			if len(data) == 0 {
				return nil, nil
			}
			sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, err
			}
			members := make([]member, 0, len(sr.File))
			for _, sf := range sr.File {
				info := sf.FileInfo()
				members = append(members, member{
					entry: Entry{
						Name:    sf.Name,
						Size:    info.Size(),
						Mode:    info.Mode(),
						ModTime: info.ModTime(),
					},
					open: sf.Open,
				})
			}
			return members, nil
		},
	}, nil
}
