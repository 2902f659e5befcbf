package unpack

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/unpack/codec"
	"github.com/meigma/unpack/format"
)

// stageKind tags a stage.
type stageKind uint8

const (
	// stageCompressor wraps its upstream in a decompressing stream and yields
	// exactly one downstream stream.
	stageCompressor stageKind = iota + 1

	// stageArchive parses its upstream into entries. It is always the last
	// stage of a chain.
	stageArchive
)

func (k stageKind) String() string {
	switch k {
	case stageCompressor:
		return "compressor"
	case stageArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// stage is one decode step built over the stage below it.
//
// Exactly one of the reader fields is set, matching kind.
type stage struct {
	kind       stageKind
	format     format.Format
	compressor codec.CompressorReader
	archive    codec.ArchiveReader
}

func compressorStage(r codec.CompressorReader) stage {
	return stage{kind: stageCompressor, format: r.Format(), compressor: r}
}

func archiveStage(r codec.ArchiveReader) stage {
	return stage{kind: stageArchive, format: r.Format(), archive: r}
}

// reader returns the downstream byte stream of a compressor stage.
func (s stage) reader() io.Reader {
	if s.kind == stageArchive {
		return s.archive
	}
	return s.compressor
}

func (s stage) release() {
	switch s.kind {
	case stageCompressor:
		s.compressor.Release()
	case stageArchive:
		s.archive.Release()
	}
}

// releaseStages releases stages innermost first.
func releaseStages(stages []stage) {
	for i := len(stages) - 1; i >= 0; i-- {
		stages[i].release()
	}
}

// buildChain materializes an explicit chain over raw. Tokens are applied in
// execution order; construction stops at the first archive token.
func buildChain(codecs codec.Factory, chain format.Chain, raw io.Reader, concatenated bool, logger *slog.Logger) ([]stage, error) {
	var stages []stage
	cur := raw
	for _, f := range chain.Stages() {
		switch f.Kind() {
		case format.KindCompressor:
			cr, err := codecs.NewCompressorReader(f, cur, concatenated)
			if err != nil {
				releaseStages(stages)
				return nil, err
			}
			stages = append(stages, compressorStage(cr))
			cur = cr
			logger.Debug("stage built", slog.String("format", f.String()), slog.String("kind", stageCompressor.String()))

		case format.KindArchive:
			ar, err := codecs.NewArchiveReader(f, cur)
			if err != nil {
				releaseStages(stages)
				return nil, err
			}
			logger.Debug("stage built", slog.String("format", f.String()), slog.String("kind", stageArchive.String()))
			return append(stages, archiveStage(ar)), nil

		default:
			releaseStages(stages)
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
		}
	}
	return stages, nil
}

// detectChain builds a single stage by probing raw: archive signatures
// first, then compressor signatures.
func detectChain(codecs codec.Factory, raw io.Reader, concatenated bool, logger *slog.Logger) ([]stage, error) {
	p := codec.AsPeeker(raw)

	ar, err := codecs.NewArchiveReader(format.AutoDetect, p)
	if err == nil {
		logger.Debug("format detected", slog.String("format", ar.Format().String()), slog.String("kind", stageArchive.String()))
		return []stage{archiveStage(ar)}, nil
	}
	if !errors.Is(err, ErrDetection) {
		return nil, err
	}

	cr, err := codecs.NewCompressorReader(format.AutoDetect, p, concatenated)
	if err == nil {
		logger.Debug("format detected", slog.String("format", cr.Format().String()), slog.String("kind", stageCompressor.String()))
		return []stage{compressorStage(cr)}, nil
	}
	if errors.Is(err, ErrDetection) {
		return nil, fmt.Errorf("%w: neither an archive nor a compressed stream", ErrDetection)
	}
	return nil, err
}
