package unpack

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meigma/unpack/format"
)

// Config is the task configuration of a decode pipeline.
type Config struct {
	// Format is the format string; empty detects the format of each file.
	Format string `yaml:"format"`

	// DecompressConcatenated decodes back-to-back compressed frames as one
	// stream. Defaults to true.
	DecompressConcatenated bool `yaml:"decompress_concatenated"`

	// MatchName is an entry name pattern. It is accepted for compatibility
	// and is not applied.
	MatchName string `yaml:"match_name"`
}

// DefaultConfig returns the configuration used for omitted keys.
func DefaultConfig() Config {
	return Config{DecompressConcatenated: true}
}

// LoadConfig decodes a YAML configuration document. Omitted keys keep their
// defaults, unknown keys are rejected, and the format string must resolve.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := format.ResolveChain(cfg.Format); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// Options returns the provider options expressing c.
func (c Config) Options() []ProviderOption {
	return []ProviderOption{
		WithFormat(c.Format),
		WithDecompressConcatenated(c.DecompressConcatenated),
	}
}

// Open builds a Provider for cfg over src and returns a FileInput reading
// from it. opts are applied after the options derived from cfg.
func Open(cfg Config, src Source, alloc Allocator, opts ...ProviderOption) (*FileInput, error) {
	p, err := NewProvider(src, append(cfg.Options(), opts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.MatchName != "" {
		p.logger.Warn("match_name is not applied; all file entries are returned",
			slog.String("match_name", cfg.MatchName))
	}
	return NewFileInput(p, alloc), nil
}
