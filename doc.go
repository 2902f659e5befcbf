// Package unpack decodes raw input files that may be compressed, archived,
// or both into a flat sequence of readable streams, one per logical entry.
//
// A [Provider] walks the files of a [Source]. For each file it builds a
// decode chain from a format string, or detects the format from the file's
// leading bytes, and yields:
//   - one stream per non-directory entry when the chain ends in an archive
//     (tar, zip, 7z, ar, cpio, ...)
//   - one stream for the whole file otherwise (gzip, bzip2, xz, zstd, ...)
//
// Format strings are resolved by the [format] package. Codecs are provided
// by the [codec] package and can be replaced with [WithCodecs].
//
// # Quick Start
//
// Read every entry of a set of tar.gz files:
//
//	p, err := unpack.NewProvider(unpack.NewFileSource("a.tgz", "b.tgz"),
//	    unpack.WithFormat("tgz"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	for {
//	    r, err := p.OpenNext()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    if _, err := io.Copy(os.Stdout, r); err != nil {
//	        return err
//	    }
//	}
//
// # Chunked Reading
//
// [FileInput] adapts a Provider to chunked consumers that read into
// allocator-owned buffers:
//
//	in, err := unpack.Open(cfg, src, unpack.NewPoolAllocator(0))
//	for {
//	    ok, err := in.NextFile()
//	    if err != nil || !ok {
//	        break
//	    }
//	    for {
//	        buf, err := in.Poll()
//	        if err != nil {
//	            break // io.EOF ends the stream
//	        }
//	        consume(buf.Bytes())
//	        buf.Release()
//	    }
//	}
//
// # Ownership
//
// Streams returned by OpenNext are views into the provider's decode chain.
// They are never closed by callers and are invalidated by the next OpenNext
// or Close. Raw input streams belong to the Source.
package unpack
