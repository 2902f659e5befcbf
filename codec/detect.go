package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/meigma/unpack/format"
)

// DetectBufferSize is the lookahead needed to sniff every supported signature.
// A tar header is the largest structure inspected.
const DetectBufferSize = 512

// Peeker is a reader that can return upcoming bytes without consuming them.
// *bufio.Reader implements Peeker.
type Peeker interface {
	io.Reader
	Peek(n int) ([]byte, error)
}

// AsPeeker returns r if it already implements Peeker, or r wrapped in a
// bufio.Reader large enough for detection.
func AsPeeker(r io.Reader) Peeker {
	if p, ok := r.(Peeker); ok {
		return p
	}
	return bufio.NewReaderSize(r, DetectBufferSize)
}

type signature struct {
	format format.Format
	match  func(head []byte) bool
}

func prefix(magic ...[]byte) func([]byte) bool {
	return func(head []byte) bool {
		for _, m := range magic {
			if bytes.HasPrefix(head, m) {
				return true
			}
		}
		return false
	}
}

// archiveSignatures is probed in order; tar goes last because its checksum
// test is the weakest.
var archiveSignatures = []signature{
	{format.Zip, prefix([]byte("PK\x03\x04"), []byte("PK\x05\x06"), []byte("PK\x07\x08"))},
	{format.SevenZ, prefix([]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C})},
	{format.AR, prefix([]byte("!<arch>\n"))},
	{format.ARJ, prefix([]byte{0x60, 0xEA})},
	{format.CPIO, prefix([]byte("070701"), []byte("070702"))},
	{format.Dump, isDump},
	{format.Tar, isTar},
}

var compressorSignatures = []signature{
	{format.Bzip2, prefix([]byte("BZh"))},
	{format.Gzip, prefix([]byte{0x1F, 0x8B})},
	{format.Pack200, prefix([]byte{0xCA, 0xFE, 0xD0, 0x0D})},
	{format.SnappyFramed, prefix([]byte("\xff\x06\x00\x00sNaPpY"))},
	{format.Z, prefix([]byte{0x1F, 0x9D})},
	{format.XZ, prefix([]byte{0xFD, '7', 'z', 'X', 'Z', 0x00})},
	{format.Zstd, prefix([]byte{0x28, 0xB5, 0x2F, 0xFD})},
	{format.LZ4Framed, prefix([]byte{0x04, 0x22, 0x4D, 0x18})},
	{format.LZMA, isLZMA},
	{format.Deflate, isZlib},
}

// DetectArchive identifies the archive format at the head of p without
// consuming any bytes. It returns ErrDetection if no signature matches.
func DetectArchive(p Peeker) (format.Format, error) {
	return detect(p, archiveSignatures, "archive")
}

// DetectCompressor identifies the compression format at the head of p
// without consuming any bytes. Raw snappy and brotli carry no signature and
// are never detected. It returns ErrDetection if no signature matches.
func DetectCompressor(p Peeker) (format.Format, error) {
	return detect(p, compressorSignatures, "compressor")
}

func detect(p Peeker, sigs []signature, kind string) (format.Format, error) {
	head, err := p.Peek(DetectBufferSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return format.AutoDetect, err
	}
	for _, sig := range sigs {
		if sig.match(head) {
			return sig.format, nil
		}
	}
	return format.AutoDetect, fmt.Errorf("%w: no %s signature matched", ErrDetection, kind)
}

// dumpMagic is the NFS_MAGIC of BSD dump tapes, stored little-endian at
// offset 24 of the first header.
const dumpMagic = 60012

func isDump(head []byte) bool {
	if len(head) < 32 {
		return false
	}
	return binary.LittleEndian.Uint32(head[24:28]) == dumpMagic
}

func isTar(head []byte) bool {
	if len(head) < 512 {
		return false
	}
	if bytes.HasPrefix(head[257:], []byte("ustar")) {
		return true
	}

	// v7 headers have no magic; accept a valid header checksum instead
	field := bytes.Trim(head[148:156], " \x00")
	if len(field) == 0 {
		return false
	}
	want, err := strconv.ParseInt(string(field), 8, 64)
	if err != nil {
		return false
	}
	var sum int64
	for i, b := range head[:512] {
		if i >= 148 && i < 156 {
			b = ' '
		}
		sum += int64(b)
	}
	// an all-zero block sums to 256 (the blank checksum field)
	return sum == want && sum != 8*' '
}

// isLZMA matches the legacy .lzma header: the default properties byte, a
// dictionary size of 2^n or 2^n+2^(n-1), and an uncompressed size that is
// either unknown (all ones) or below 2^48.
func isLZMA(head []byte) bool {
	if len(head) < 13 || head[0] != 0x5D {
		return false
	}
	dict := binary.LittleEndian.Uint32(head[1:5])
	if dict < 1<<12 {
		return false
	}
	low := dict & -dict
	if dict != low && dict != low|low<<1 {
		return false
	}
	size := binary.LittleEndian.Uint64(head[5:13])
	return size == ^uint64(0) || size < 1<<48
}

// zlibFlags are the FLG bytes zlib writes after CMF 0x78 for its four
// compression levels. None sets FDICT.
var zlibFlags = [...]byte{0x01, 0x5E, 0x9C, 0xDA}

// isZlib matches the zlib headers produced for a 32K window.
func isZlib(head []byte) bool {
	if len(head) < 2 || head[0] != 0x78 {
		return false
	}
	return slices.Contains(zlibFlags[:], head[1])
}
