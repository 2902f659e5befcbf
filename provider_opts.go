package unpack

import (
	"log/slog"

	"github.com/meigma/unpack/codec"
)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithFormat sets the format string applied to every input file.
//
// The string is a single token ("tar", "bzip2"), a solid alias ("tgz",
// "tar.bz2"), or space-separated tokens declared container first ("tar gz").
// An empty string, the default, detects the format of each file.
func WithFormat(s string) ProviderOption {
	return func(p *Provider) {
		p.formatString = s
	}
}

// WithDecompressConcatenated controls whether back-to-back compressed frames
// in one file are decoded as a single stream (default: true).
func WithDecompressConcatenated(enabled bool) ProviderOption {
	return func(p *Provider) {
		p.concatenated = enabled
	}
}

// WithCodecs sets the codec factory (default: codec.New()).
func WithCodecs(f codec.Factory) ProviderOption {
	return func(p *Provider) {
		p.codecs = f
	}
}

// WithLogger sets a custom logger for the provider.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}
