package unpack

import (
	"io"
	"log/slog"

	"github.com/meigma/unpack/codec"
)

// EntryIterator yields the non-directory entries of one archive stage.
//
// The iterator is single-pass and forward-only. Every stream returned by
// Next is the same non-owning view of the archive reader, positioned at the
// entry just returned; advancing invalidates what was read before.
type EntryIterator struct {
	ar     codec.ArchiveReader
	view   io.Reader
	logger *slog.Logger

	peeked  *codec.Entry
	current *codec.Entry
	end     bool
	err     error
}

// NewEntryIterator returns an iterator over ar. The iterator never releases
// ar; the owner of the stage does.
func NewEntryIterator(ar codec.ArchiveReader) *EntryIterator {
	return &EntryIterator{
		ar:     ar,
		view:   &view{r: ar},
		logger: slog.New(slog.DiscardHandler),
	}
}

// HasNext reports whether another non-directory entry exists, reading ahead
// in the archive as needed. Once the end of the archive or an error is
// reached, further calls return the same result without reading.
func (it *EntryIterator) HasNext() (bool, error) {
	if it.peeked != nil {
		return true, nil
	}
	if it.end {
		return false, nil
	}
	if it.err != nil {
		return false, it.err
	}

	for {
		e, err := it.ar.Next()
		if err == io.EOF {
			it.end = true
			return false, nil
		}
		if err != nil {
			it.err = err
			return false, err
		}
		if e.IsDir() {
			it.logger.Debug("entry skipped", slog.String("name", e.Name))
			continue
		}
		it.peeked = e
		return true, nil
	}
}

// Next returns the stream of the next non-directory entry, or nil and
// io.EOF when the archive is exhausted.
func (it *EntryIterator) Next() (io.Reader, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}
	it.current, it.peeked = it.peeked, nil
	return it.view, nil
}

// Entry returns the metadata of the entry last returned by Next, or nil.
func (it *EntryIterator) Entry() *codec.Entry {
	return it.current
}

// view exposes only Read, so callers cannot release or advance the stage
// behind it.
type view struct {
	r io.Reader
}

func (v *view) Read(p []byte) (int, error) {
	return v.r.Read(p)
}
