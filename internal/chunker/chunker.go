// Package chunker splits long text into bounded, overlapping segments for embedding.
//
// Two named strategies are available and one is selected at configuration
// time: "recursive" respects paragraph and sentence boundaries, "fixed" cuts
// fixed-width windows. Lengths are measured in runes.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// Strategy names accepted by New.
const (
	StrategyRecursive = "recursive"
	StrategyFixed     = "fixed"
)

var (
	ErrInvalidSize     = errors.New("chunk size must be positive")
	ErrInvalidOverlap  = errors.New("chunk overlap must be non-negative and smaller than chunk size")
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
)

// Strategy turns a text into an ordered sequence of chunks. The sequence is
// lazy and can be ranged over more than once with identical results.
type Strategy interface {
	Chunks(text string) iter.Seq[string]
}

// Config selects a strategy and its bounds.
type Config struct {
	Strategy string
	Size     int
	Overlap  int
}

// New returns the strategy named by cfg.Strategy. An empty name selects the
// recursive strategy.
func New(cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case StrategyRecursive, "":
		return NewRecursive(cfg.Size, cfg.Overlap)
	case StrategyFixed:
		return NewFixed(cfg.Size, cfg.Overlap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// Split cuts text into fixed windows of size runes advancing by size-overlap.
// It fails when overlap >= size.
func Split(text string, size, overlap int) ([]string, error) {
	f, err := NewFixed(size, overlap)
	if err != nil {
		return nil, err
	}
	return slices.Collect(f.Chunks(text)), nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d, size %d", ErrInvalidOverlap, overlap, size)
	}
	return nil
}
