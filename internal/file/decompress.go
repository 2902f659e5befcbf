// Package file provides stream helpers shared by the decode pipeline:
// pooled zstd decoders, byte counting, and context-aware copying.
package file

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdPool hands out zstd decoders for compressor stages and takes them back
// when a stage is discarded. A nil *ZstdPool is valid and creates one-off
// decoders.
type ZstdPool struct {
	pool        sync.Pool
	maxMemory   uint64
	concurrency int
	lowmem      bool
}

// ZstdOption configures a ZstdPool.
type ZstdOption func(*ZstdPool)

// WithZstdMaxMemory limits the memory a single decoder may allocate.
// Zero disables the limit.
func WithZstdMaxMemory(limit uint64) ZstdOption {
	return func(p *ZstdPool) {
		p.maxMemory = limit
	}
}

// WithZstdConcurrency sets the decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithZstdConcurrency(n int) ZstdOption {
	return func(p *ZstdPool) {
		if n < 0 {
			n = 0
		}
		p.concurrency = n
	}
}

// WithZstdLowmem enables low-memory mode for decoders.
func WithZstdLowmem(enabled bool) ZstdOption {
	return func(p *ZstdPool) {
		p.lowmem = enabled
	}
}

// NewZstdPool creates a decoder pool.
func NewZstdPool(opts ...ZstdOption) *ZstdPool {
	p := &ZstdPool{concurrency: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a decoder reading from r and a release function that must
// be called once the decoder is no longer read. Release does not close r.
// If an error is returned, no release function needs to be called.
func (p *ZstdPool) Acquire(r io.Reader) (*zstd.Decoder, func(), error) {
	if p == nil {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	if dec, ok := p.pool.Get().(*zstd.Decoder); ok {
		// Reset may already have consumed r, so a failure is final
		if err := dec.Reset(r); err != nil {
			dec.Close()
			return nil, nil, err
		}
		return dec, p.releaser(dec), nil
	}

	dec, err := zstd.NewReader(r, p.decoderOptions()...)
	if err != nil {
		return nil, nil, err
	}
	return dec, p.releaser(dec), nil
}

func (p *ZstdPool) releaser(dec *zstd.Decoder) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// drop the reference to the stage's upstream before pooling
			_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
			p.pool.Put(dec)
		})
	}
}

func (p *ZstdPool) decoderOptions() []zstd.DOption {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(p.concurrency),
		zstd.WithDecoderLowmem(p.lowmem),
	}
	if p.maxMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxMemory))
	}
	return opts
}
