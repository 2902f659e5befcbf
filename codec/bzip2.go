package codec

import "io"

// bzip2EndMagic marks the end of a bzip2 stream. It is followed by the
// 32-bit combined CRC and padding to the next byte.
const bzip2EndMagic = 0x177245385090

// bzip2HeaderBits covers the "BZh" signature and the block size digit.
const bzip2HeaderBits = 32

// bzip2FirstStream passes through the compressed bytes of the first bzip2
// stream of r and reports io.EOF where that stream ends. compress/bzip2
// always continues into concatenated streams, so a single-stream decode
// reads through this instead of the raw upstream.
//
// The end marker is not byte aligned; the bits are scanned as they pass.
type bzip2FirstStream struct {
	r      io.Reader
	buf    []byte
	data   []byte // read from r, not yet returned
	window uint64
	nbits  uint64
	off    int64 // bytes returned
	end    int64 // byte offset just past the first stream, -1 until found
	err    error
}

func newBzip2FirstStream(r io.Reader) *bzip2FirstStream {
	return &bzip2FirstStream{r: r, buf: make([]byte, 32<<10), end: -1}
}

func (s *bzip2FirstStream) Read(p []byte) (int, error) {
	for {
		if s.end >= 0 {
			if rest := s.end - s.off; int64(len(s.data)) > rest {
				s.data = s.data[:rest]
			}
			if len(s.data) == 0 && s.off >= s.end {
				return 0, io.EOF
			}
		}
		if len(s.data) > 0 {
			break
		}
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.r.Read(s.buf)
		s.data, s.err = s.buf[:n], err
		s.scan(s.data)
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	s.off += int64(n)
	return n, nil
}

func (s *bzip2FirstStream) scan(b []byte) {
	const mask = 1<<48 - 1
	for _, c := range b {
		if s.end >= 0 {
			return
		}
		for i := 7; i >= 0; i-- {
			s.window = (s.window<<1 | uint64(c>>uint(i)&1)) & mask
			s.nbits++
			if s.nbits >= bzip2HeaderBits+48 && s.window == bzip2EndMagic {
				s.end = int64((s.nbits + 32 + 7) / 8) //nolint:gosec // bit count of a readable stream
				break
			}
		}
	}
}
