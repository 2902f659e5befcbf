// Package sizing bounds reads that must materialize a whole stream in memory.
package sizing

import (
	"io"
	"math"
)

// ReadAllWithLimit reads r to EOF, keeping at most maxSize bytes.
// Returns overflowErr if more than maxSize bytes are available. A maxSize of
// zero disables the limit.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize == 0 {
		return io.ReadAll(r)
	}
	if maxSize > uint64(math.MaxInt64-1) {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: int64(maxSize) + 1} //nolint:gosec // checked above
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize {
		return nil, overflowErr
	}
	return data, nil
}
