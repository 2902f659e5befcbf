package unpack

import "io"

// maxEmptyReads bounds consecutive empty reads before Poll gives up.
const maxEmptyReads = 100

// StreamProvider supplies decoded streams to a FileInput. *Provider
// implements StreamProvider.
type StreamProvider interface {
	OpenNext() (io.Reader, error)
	Close() error
}

// FileInput reads decoded streams chunk by chunk into allocator buffers.
//
// Call NextFile to move to the next stream, then Poll until it returns
// io.EOF. FileInput never closes the streams it reads; they belong to the
// provider's decode chain.
type FileInput struct {
	provider StreamProvider
	alloc    Allocator
	cur      io.Reader
	pending  error
}

// NewFileInput returns a FileInput over p. Buffers come from alloc; a nil
// alloc uses a PoolAllocator with DefaultBufferSize.
func NewFileInput(p StreamProvider, alloc Allocator) *FileInput {
	if alloc == nil {
		alloc = NewPoolAllocator(DefaultBufferSize)
	}
	return &FileInput{provider: p, alloc: alloc}
}

// NextFile advances to the next decoded stream. It returns false once the
// provider is exhausted.
//
// The new stream may be the same object as the previous one when both come
// from the same archive.
func (in *FileInput) NextFile() (bool, error) {
	in.cur, in.pending = nil, nil
	r, err := in.provider.OpenNext()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	in.cur = r
	return true, nil
}

// Poll reads the next chunk of the current stream. It returns nil and
// io.EOF at the end of the stream, and ErrNoCurrentFile if NextFile has not
// returned true. The caller owns the returned buffer and must release it.
//
// On a read failure the buffer is released before the error is returned.
func (in *FileInput) Poll() (*Buffer, error) {
	if in.cur == nil {
		return nil, ErrNoCurrentFile
	}
	if in.pending != nil {
		return nil, in.pending
	}

	buf := in.alloc.Allocate()
	for range maxEmptyReads {
		n, err := in.cur.Read(buf.data)
		if n > 0 {
			buf.n = n
			if err != nil {
				// deliver the data now, the error on the next call
				in.pending = tagIO(err)
			}
			return buf, nil
		}
		if err != nil {
			buf.Release()
			return nil, tagIO(err)
		}
	}
	buf.Release()
	return nil, tagIO(io.ErrNoProgress)
}

// Close closes the provider.
func (in *FileInput) Close() error {
	in.cur, in.pending = nil, nil
	return in.provider.Close()
}
