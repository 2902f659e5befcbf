package file

import (
	"context"
	"io"
)

// CopyStream drains src into dst through buf, giving up once ctx is done.
// It returns the number of bytes taken from src.
func CopyStream(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}
	cr := NewCountingReader(&ctxReader{ctx: ctx, r: src})
	// plain wrappers keep io.CopyBuffer on buf instead of ReadFrom/WriteTo
	_, err := io.CopyBuffer(struct{ io.Writer }{dst}, cr, buf)
	return cr.Count(), err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
