package codec

import "github.com/meigma/unpack/internal/file"

// Option configures a Codecs factory.
type Option func(*Codecs)

// WithMaxBufferSize limits how many bytes zip, jar, 7z, and raw snappy
// streams may occupy in memory. Set limit to 0 to disable the limit.
func WithMaxBufferSize(limit uint64) Option {
	return func(c *Codecs) {
		c.maxBufferSize = limit
	}
}

// WithMaxDecoderMemory limits the memory used by each zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *Codecs) {
		c.zstdOpts = append(c.zstdOpts, file.WithZstdMaxMemory(limit))
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(c *Codecs) {
		c.zstdOpts = append(c.zstdOpts, file.WithZstdConcurrency(n))
	}
}

// WithDecoderLowmem sets whether zstd decoders use low-memory mode (default: false).
func WithDecoderLowmem(enabled bool) Option {
	return func(c *Codecs) {
		c.zstdOpts = append(c.zstdOpts, file.WithZstdLowmem(enabled))
	}
}
