package main

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"io"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/unpack"
	"github.com/meigma/unpack/internal/file"
)

// streamDigest describes one decoded stream.
type streamDigest struct {
	index  int
	digest digest.Digest
	size   uint64
}

// digestFiles decodes files concurrently, at most jobs at a time, and prints
// one line per stream in input order.
func digestFiles(ctx context.Context, out io.Writer, cfg unpack.Config, files []string, jobs, bufferSize int, opts []unpack.ProviderOption) error {
	if bufferSize <= 0 {
		bufferSize = unpack.DefaultBufferSize
	}
	results := make([][]streamDigest, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range files {
		g.Go(func() error {
			digests, err := digestFile(ctx, cfg, path, bufferSize, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = digests
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, digests := range results {
		name := filepath.Base(files[i])
		for _, d := range digests {
			if _, err := fmt.Fprintf(out, "%s  %s#%d  %d\n", d.digest, name, d.index, d.size); err != nil {
				return err
			}
		}
	}
	return nil
}

func digestFile(ctx context.Context, cfg unpack.Config, path string, bufferSize int, opts []unpack.ProviderOption) ([]streamDigest, error) {
	opts = append(cfg.Options(), opts...)
	p, err := unpack.NewProvider(unpack.NewFileSource(path), opts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	buf := make([]byte, bufferSize)
	var digests []streamDigest
	for {
		r, err := p.OpenNext()
		if err == io.EOF {
			return digests, nil
		}
		if err != nil {
			return nil, err
		}
		d := digest.Canonical.Digester()
		n, err := file.CopyStream(ctx, d.Hash(), r, buf)
		if err != nil {
			return nil, err
		}
		digests = append(digests, streamDigest{index: len(digests), digest: d.Digest(), size: n})
	}
}
