// Package format classifies archive and compression format tokens and
// resolves user-facing format strings into decode chains.
//
// A format string is either empty (auto-detect), a single token such as
// "tar" or "bzip2", a solid alias such as "tgz" or "tar.bz2", or a
// space-separated token list such as "tar gzip". Tokens are declared
// container first, compression last; decoding runs in the reverse order.
package format

import (
	"slices"
	"strings"

	"github.com/meigma/unpack/internal/unpacktype"
)

// ErrUnsupportedFormat is returned when a format string does not resolve.
var ErrUnsupportedFormat = unpacktype.ErrUnsupportedFormat

// Format is a canonical, lowercase format token.
type Format string

// AutoDetect requests signature-based detection instead of an explicit format.
const AutoDetect Format = ""

// Archive formats.
const (
	AR     Format = "ar"
	ARJ    Format = "arj"
	CPIO   Format = "cpio"
	Dump   Format = "dump"
	JAR    Format = "jar"
	SevenZ Format = "7z"
	Tar    Format = "tar"
	Zip    Format = "zip"
)

// Compressor formats.
const (
	Bzip2        Format = "bzip2"
	Deflate      Format = "deflate"
	Gzip         Format = "gz"
	LZMA         Format = "lzma"
	Pack200      Format = "pack200"
	SnappyFramed Format = "snappy-framed"
	SnappyRaw    Format = "snappy-raw"
	XZ           Format = "xz"
	Z            Format = "z"
	Zstd         Format = "zstd"
	LZ4Framed    Format = "lz4-framed"
	Brotli       Format = "br"
)

// Kind classifies a format token.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindArchive
	KindCompressor
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindCompressor:
		return "compressor"
	default:
		return "unknown"
	}
}

var archiveFormats = []Format{AR, ARJ, CPIO, Dump, JAR, SevenZ, Tar, Zip}

var compressorFormats = []Format{
	Bzip2, Deflate, Gzip, LZMA, Pack200, SnappyFramed, SnappyRaw, XZ, Z,
	Zstd, LZ4Framed, Brotli,
}

// aliases maps alternative spellings to canonical tokens.
var aliases = map[string]Format{
	"gzip":   Gzip,
	"bz2":    Bzip2,
	"zst":    Zstd,
	"lz4":    LZ4Framed,
	"brotli": Brotli,
}

// solidFormats maps compound aliases to their declared token order.
var solidFormats = []struct {
	alias    string
	declared [2]Format
}{
	{"tgz", [2]Format{Tar, Gzip}},
	{"tar.gz", [2]Format{Tar, Gzip}},
	{"tbz", [2]Format{Tar, Bzip2}},
	{"tbz2", [2]Format{Tar, Bzip2}},
	{"tb2", [2]Format{Tar, Bzip2}},
	{"tar.bz2", [2]Format{Tar, Bzip2}},
	{"taz", [2]Format{Tar, Z}},
	{"tz", [2]Format{Tar, Z}},
	{"tar.Z", [2]Format{Tar, Z}},
	{"tlz", [2]Format{Tar, LZMA}},
	{"tar.lz", [2]Format{Tar, LZMA}},
	{"tar.lzma", [2]Format{Tar, LZMA}},
	{"txz", [2]Format{Tar, XZ}},
	{"tar.xz", [2]Format{Tar, XZ}},
	{"tzst", [2]Format{Tar, Zstd}},
	{"tar.zst", [2]Format{Tar, Zstd}},
	{"tar.lz4", [2]Format{Tar, LZ4Framed}},
	{"tar.br", [2]Format{Tar, Brotli}},
}

// ArchiveFormats returns the archive tokens.
func ArchiveFormats() []Format {
	return slices.Clone(archiveFormats)
}

// CompressorFormats returns the canonical compressor tokens.
func CompressorFormats() []Format {
	return slices.Clone(compressorFormats)
}

// SolidFormats returns the compound aliases accepted by ResolveChain.
func SolidFormats() []string {
	out := make([]string, len(solidFormats))
	for i, s := range solidFormats {
		out[i] = s.alias
	}
	return out
}

// IsAutoDetect reports whether s requests format auto-detection.
func IsAutoDetect(s string) bool {
	return s == ""
}

// Normalize returns the canonical token for s. Unknown tokens are lowercased
// and returned unchanged so that Classify can reject them.
func Normalize(s string) Format {
	lower := strings.ToLower(s)
	if f, ok := aliases[lower]; ok {
		return f
	}
	return Format(lower)
}

// Classify reports whether token names an archive or a compressor format.
func Classify(token string) Kind {
	f := Normalize(token)
	switch {
	case slices.Contains(archiveFormats, f):
		return KindArchive
	case slices.Contains(compressorFormats, f):
		return KindCompressor
	default:
		return KindUnknown
	}
}

// Kind classifies f.
func (f Format) Kind() Kind {
	return Classify(string(f))
}

// IsArchive reports whether f is an archive format.
func (f Format) IsArchive() bool {
	return f.Kind() == KindArchive
}

// IsCompressor reports whether f is a compressor format.
func (f Format) IsCompressor() bool {
	return f.Kind() == KindCompressor
}

func (f Format) String() string {
	if f == AutoDetect {
		return "auto"
	}
	return string(f)
}
