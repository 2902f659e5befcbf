// unpack decodes compressed and archived files to stdout.
//
// Every input file is decoded with the same format string, or detected per
// file when no format is given. Archive entries are written in order with
// no separators. With --digest, one line per decoded stream is printed
// instead:
//
//	sha256:<hex>  <file>#<stream index>  <bytes>
//
// Usage:
//
//	unpack [-f format] [-c config.yaml] [--decompress-concatenated] [--digest] [-j N] [-o out] [-v] FILE...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/meigma/unpack"
	"github.com/meigma/unpack/codec"
	"github.com/meigma/unpack/format"
)

type options struct {
	format        string
	configPath    string
	concatenated  bool
	concatSet     bool
	digest        bool
	jobs          int
	output        string
	verbose       bool
	bufferSize    int
	maxBufferSize uint64
	listFormats   bool
	profile       profileConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, files, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.listFormats {
		return listFormats(stdout)
	}
	if len(files) == 0 {
		return errors.New("no input files")
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	stopProfile, err := startProfile(opts.profile)
	if err != nil {
		return err
	}
	defer stopProfile(logger)

	codecs := codec.New(codec.WithMaxBufferSize(opts.maxBufferSize))
	providerOpts := []unpack.ProviderOption{unpack.WithCodecs(codecs), unpack.WithLogger(logger)}

	if opts.digest {
		return digestFiles(ctx, out, cfg, files, opts.jobs, opts.bufferSize, providerOpts)
	}
	return catFiles(ctx, out, cfg, files, opts.bufferSize, providerOpts)
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := pflag.NewFlagSet("unpack", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: unpack [flags] FILE...")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Decodes compressed and archived files. Formats are detected unless --format is set.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	fs.StringVarP(&opts.format, "format", "f", "", `format string, e.g. "tar", "tgz", "tar bzip2" (default: detect)`)
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML task config (format, decompress_concatenated, match_name)")
	fs.BoolVar(&opts.concatenated, "decompress-concatenated", true, "decode back-to-back compressed frames as one stream")
	fs.BoolVar(&opts.digest, "digest", false, "print a digest per decoded stream instead of its content")
	fs.IntVarP(&opts.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files digested concurrently")
	fs.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log decode steps")
	fs.IntVar(&opts.bufferSize, "buffer-size", unpack.DefaultBufferSize, "read chunk size in bytes")
	fs.Uint64Var(&opts.maxBufferSize, "max-buffer-size", codec.DefaultMaxBufferSize, "limit for zip, 7z, and raw snappy files held in memory (0: no limit)")
	fs.BoolVar(&opts.listFormats, "list-formats", false, "list supported format tokens and exit")
	opts.profile.addFlags(fs)

	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}

	// flags given explicitly win over the config file
	opts.concatSet = fs.Changed("decompress-concatenated")
	return opts, fs.Args(), nil
}

func loadConfig(opts options) (unpack.Config, error) {
	cfg := unpack.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := unpack.LoadConfigFile(opts.configPath)
		if err != nil {
			return unpack.Config{}, err
		}
		cfg = loaded
	}
	if opts.format != "" {
		if _, err := format.ResolveChain(opts.format); err != nil {
			return unpack.Config{}, err
		}
		cfg.Format = opts.format
	}
	if opts.concatSet {
		cfg.DecompressConcatenated = opts.concatenated
	}
	return cfg, nil
}

// catFiles writes every decoded stream to out, chunk by chunk.
func catFiles(ctx context.Context, out io.Writer, cfg unpack.Config, files []string, bufferSize int, opts []unpack.ProviderOption) error {
	in, err := unpack.Open(cfg, unpack.NewFileSource(files...), unpack.NewPoolAllocator(bufferSize), opts...)
	if err != nil {
		return err
	}
	defer in.Close()

	for {
		ok, err := in.NextFile()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := in.Poll()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			_, err = out.Write(buf.Bytes())
			buf.Release()
			if err != nil {
				return err
			}
		}
	}
}

func listFormats(w io.Writer) error {
	join := func(fs []format.Format) string {
		parts := make([]string, len(fs))
		for i, f := range fs {
			parts[i] = f.String()
		}
		return strings.Join(parts, " ")
	}
	_, err := fmt.Fprintf(w, "archives:    %s\ncompressors: %s\nsolid:       %s\n",
		join(format.ArchiveFormats()),
		join(format.CompressorFormats()),
		strings.Join(format.SolidFormats(), " "))
	return err
}
