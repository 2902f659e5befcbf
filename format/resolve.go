package format

import (
	"fmt"
	"slices"
	"strings"
)

// Chain is a resolved format string.
//
// The zero Chain requests auto-detection. An explicit chain may be empty,
// in which case the raw bytes pass through undecoded.
type Chain struct {
	declared []Format
	explicit bool
}

// AutoDetect reports whether the chain requests auto-detection.
func (c Chain) AutoDetect() bool {
	return !c.explicit
}

// Declared returns the tokens in declared order (container first).
func (c Chain) Declared() []Format {
	return slices.Clone(c.declared)
}

// Order returns the tokens in execution order: the last declared token is
// applied first, against the rawest bytes.
func (c Chain) Order() []Format {
	order := slices.Clone(c.declared)
	slices.Reverse(order)
	return order
}

// Stages returns the execution order up to and including the first archive
// token. Decoding stops at an archive, so any later token is never applied.
func (c Chain) Stages() []Format {
	order := c.Order()
	for i, f := range order {
		if f.IsArchive() {
			return order[:i+1]
		}
	}
	return order
}

// Unreachable returns tokens that follow an archive in execution order.
func (c Chain) Unreachable() []Format {
	order := c.Order()
	return order[len(c.Stages()):]
}

func (c Chain) String() string {
	if c.AutoDetect() {
		return AutoDetect.String()
	}
	parts := make([]string, len(c.declared))
	for i, f := range c.declared {
		parts[i] = string(f)
	}
	return strings.Join(parts, " ")
}

// ResolveChain resolves a format string.
//
// An empty string resolves to the zero Chain (auto-detect). A single known
// token resolves to itself. A solid alias such as "tgz" expands to its archive
// and compressor tokens. Anything else is split on single spaces, with every
// non-empty token required to be a known archive or compressor format; tabs
// and other whitespace are part of a token. A string of spaces only resolves
// to an empty explicit chain, which decodes nothing.
func ResolveChain(s string) (Chain, error) {
	if IsAutoDetect(s) {
		return Chain{}, nil
	}
	if Classify(s) != KindUnknown {
		return Chain{declared: []Format{Normalize(s)}, explicit: true}, nil
	}
	for _, solid := range solidFormats {
		if strings.EqualFold(solid.alias, s) {
			return Chain{declared: solid.declared[:], explicit: true}, nil
		}
	}

	declared := []Format{}
	for field := range strings.SplitSeq(s, " ") {
		if field == "" {
			continue
		}
		if Classify(field) == KindUnknown {
			return Chain{}, fmt.Errorf("%w: %q in %q", ErrUnsupportedFormat, field, s)
		}
		declared = append(declared, Normalize(field))
	}
	return Chain{declared: declared, explicit: true}, nil
}
