package unpack

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/unpack/codec"
	"github.com/meigma/unpack/format"
	"github.com/meigma/unpack/internal/file"
)

// Stats reports provider progress.
type Stats struct {
	// Files is the number of input files opened.
	Files int
	// Streams is the number of decoded streams returned by OpenNext.
	Streams int
	// RawBytes is the number of raw input bytes consumed by decode chains.
	RawBytes uint64
}

// Provider flattens input files and their archive entries into one sequence
// of decoded streams.
//
// For each file from the Source the provider builds a decode chain, either
// from the configured format string or by detection. A chain ending in an
// archive yields one stream per non-directory entry; any other chain yields
// exactly one stream. Streams returned by OpenNext are views owned by the
// provider and are invalidated by the next OpenNext or Close.
//
// A Provider is not safe for concurrent use.
type Provider struct {
	src          Source
	codecs       codec.Factory
	logger       *slog.Logger
	formatString string
	concatenated bool
	chain        format.Chain

	// per-file state
	active bool
	raw    *file.CountingReader
	stages []stage
	iter   *EntryIterator
	single io.Reader

	closed   bool
	stats    Stats
	rawBytes uint64
}

// NewProvider creates a provider reading files from src.
//
// The format string is resolved once; an unresolvable string returns
// ErrUnsupportedFormat.
func NewProvider(src Source, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		src:          src,
		logger:       slog.New(slog.DiscardHandler),
		concatenated: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.codecs == nil {
		p.codecs = codec.New()
	}

	chain, err := format.ResolveChain(p.formatString)
	if err != nil {
		return nil, err
	}
	p.chain = chain
	if unreachable := chain.Unreachable(); len(unreachable) > 0 {
		p.logger.Warn("formats after an archive are never applied",
			slog.String("format", chain.String()),
			slog.Any("ignored", unreachable))
	}
	return p, nil
}

// AutoDetect reports whether formats are detected per file.
func (p *Provider) AutoDetect() bool {
	return p.chain.AutoDetect()
}

// Formats returns the resolved formats in execution order, or nil when
// formats are detected.
func (p *Provider) Formats() []format.Format {
	if p.chain.AutoDetect() {
		return nil
	}
	return p.chain.Order()
}

// Stats returns a snapshot of provider progress.
func (p *Provider) Stats() Stats {
	s := p.stats
	s.RawBytes = p.rawBytes
	if p.raw != nil {
		s.RawBytes += p.raw.Count()
	}
	return s
}

// OpenNext returns the next decoded stream, or nil and io.EOF when every
// file is exhausted.
//
// An error abandons the current file; a later call continues with the
// next file.
func (p *Provider) OpenNext() (io.Reader, error) {
	for {
		if p.closed {
			return nil, ErrClosed
		}

		if p.active {
			r, err := p.nextInFile()
			if err != nil {
				p.discard()
				return nil, err
			}
			if r != nil {
				p.stats.Streams++
				return r, nil
			}
			p.discard()
		}

		ok, err := p.src.NextFile()
		if err != nil {
			return nil, tagIO(err)
		}
		if !ok {
			p.logger.Debug("inputs exhausted", slog.Int("files", p.stats.Files))
			return nil, io.EOF
		}
		if err := p.openFile(); err != nil {
			return nil, err
		}
	}
}

// nextInFile returns the next stream of the active file, or nil when the
// file is exhausted.
func (p *Provider) nextInFile() (io.Reader, error) {
	if p.iter != nil {
		r, err := p.iter.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if e := p.iter.Entry(); e != nil {
			p.logger.Debug("entry opened", slog.String("name", e.Name), slog.Int64("size", e.Size))
		}
		return r, nil
	}
	r := p.single
	p.single = nil
	return r, nil
}

func (p *Provider) openFile() error {
	p.stats.Files++
	p.raw = file.NewCountingReader(&sourceReader{r: p.src.Reader()})
	p.logger.Debug("file opened", slog.Int("file", p.stats.Files))

	var (
		stages []stage
		err    error
	)
	if p.chain.AutoDetect() {
		stages, err = detectChain(p.codecs, p.raw, p.concatenated, p.logger)
	} else {
		stages, err = buildChain(p.codecs, p.chain, p.raw, p.concatenated, p.logger)
	}
	if err != nil {
		p.discard()
		return fmt.Errorf("file %d: %w", p.stats.Files, err)
	}

	p.stages, p.active = stages, true
	if len(stages) == 0 {
		// an explicit chain of no formats passes the raw bytes through
		p.single = &view{r: p.raw}
		return nil
	}
	last := stages[len(stages)-1]
	if last.kind == stageArchive {
		p.iter = NewEntryIterator(last.archive)
		p.iter.logger = p.logger
	} else {
		p.single = &view{r: last.reader()}
	}
	return nil
}

// discard drops the active file chain. Codec resources are released; the
// raw stream stays with the Source.
func (p *Provider) discard() {
	if p.active {
		p.logger.Debug("file exhausted", slog.Int("file", p.stats.Files))
	}
	releaseStages(p.stages)
	if p.raw != nil {
		p.rawBytes += p.raw.Count()
	}
	p.stages, p.iter, p.single, p.raw, p.active = nil, nil, nil, nil, false
}

// Close discards the active chain and closes the Source. Close is idempotent.
func (p *Provider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.discard()
	if err := p.src.Close(); err != nil {
		return tagIO(err)
	}
	return nil
}

// sourceReader tags raw read failures with ErrIO so they stay
// distinguishable from codec errors further up the chain.
type sourceReader struct {
	r io.Reader
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, io.EOF
	}
	n, err := s.r.Read(p)
	return n, tagIO(err)
}
