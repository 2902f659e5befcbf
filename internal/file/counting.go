package file

import (
	"errors"
	"io"
)

// ErrOverflow indicates a byte counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// CountingReader tracks how many bytes have been pulled through a raw stream.
// The provider uses it to report how much of each input file the decode
// chain consumed.
type CountingReader struct {
	r io.Reader
	n uint64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n <= 0 {
		return n, err
	}
	if c.n > ^uint64(0)-uint64(n) {
		return n, ErrOverflow
	}
	c.n += uint64(n)
	return n, err
}

// Count returns the number of bytes read so far.
func (c *CountingReader) Count() uint64 {
	return c.n
}
