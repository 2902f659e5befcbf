package unpack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Source is an ordered sequence of raw input files.
//
// The stream returned by Reader belongs to the Source. It stays valid until
// the next NextFile or Close call, and consumers never close it.
type Source interface {
	// NextFile advances to the next file. It returns false when no files
	// remain.
	NextFile() (bool, error)

	// Reader returns the raw stream of the current file.
	Reader() io.Reader

	// Close releases the current file and ends the sequence.
	Close() error
}

// ReaderSource serves in-memory or caller-opened streams in order.
// Streams implementing io.Closer are closed when the source advances past
// them or is closed.
type ReaderSource struct {
	readers []io.Reader
	idx     int
	cur     io.Reader
}

// NewReaderSource returns a Source over readers.
func NewReaderSource(readers ...io.Reader) *ReaderSource {
	return &ReaderSource{readers: readers}
}

// NextFile implements Source.
func (s *ReaderSource) NextFile() (bool, error) {
	if err := s.closeCurrent(); err != nil {
		return false, err
	}
	if s.idx >= len(s.readers) {
		return false, nil
	}
	s.cur = s.readers[s.idx]
	s.idx++
	return true, nil
}

// Reader implements Source.
func (s *ReaderSource) Reader() io.Reader {
	return s.cur
}

// Close implements Source.
func (s *ReaderSource) Close() error {
	s.idx = len(s.readers)
	return s.closeCurrent()
}

func (s *ReaderSource) closeCurrent() error {
	cur := s.cur
	s.cur = nil
	if c, ok := cur.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("%w: close input: %w", ErrIO, err)
		}
	}
	return nil
}

// FileSource opens named files one at a time. The previous file is closed
// before the next one is opened.
type FileSource struct {
	open  func(name string) (fs.File, error)
	names []string
	idx   int
	cur   fs.File
	name  string
}

// NewFileSource returns a Source over paths on the local filesystem.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{
		open: func(name string) (fs.File, error) {
			return os.Open(name) //nolint:gosec // paths are supplied by the caller
		},
		names: paths,
	}
}

// NewFSSource returns a Source over names in fsys.
func NewFSSource(fsys fs.FS, names ...string) *FileSource {
	return &FileSource{open: fsys.Open, names: names}
}

// NextFile implements Source.
func (s *FileSource) NextFile() (bool, error) {
	if err := s.closeCurrent(); err != nil {
		return false, err
	}
	if s.idx >= len(s.names) {
		return false, nil
	}
	name := s.names[s.idx]
	s.idx++

	f, err := s.open(name)
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %w", ErrIO, name, err)
	}
	s.cur, s.name = f, name
	return true, nil
}

// Reader implements Source.
func (s *FileSource) Reader() io.Reader {
	if s.cur == nil {
		return nil
	}
	return s.cur
}

// Name returns the name of the current file.
func (s *FileSource) Name() string {
	return s.name
}

// Close implements Source.
func (s *FileSource) Close() error {
	s.idx = len(s.names)
	return s.closeCurrent()
}

func (s *FileSource) closeCurrent() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur, s.name = nil, ""
	if err != nil && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("%w: close input: %w", ErrIO, err)
	}
	return nil
}
