// Package transcribe converts recorded audio into text.
//
// The remote OpenAI transcriber is tried first and a local command is the
// fallback; Chain expresses that order.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNoTranscriber means no transcription method is configured.
	ErrNoTranscriber = errors.New("no transcription method available")

	// ErrTranscription wraps the failure of every configured method.
	ErrTranscription = errors.New("transcription failed")
)

// Transcriber turns the audio file at path into text. Calls may be slow.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Chain tries each transcriber in order and returns the first success.
type Chain struct {
	steps  []Transcriber
	logger *slog.Logger
}

// NewChain builds a chain from the non-nil transcribers.
func NewChain(logger *slog.Logger, steps ...Transcriber) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, s := range steps {
		if s != nil {
			c.steps = append(c.steps, s)
		}
	}
	return c
}

// Len returns the number of configured transcribers.
func (c *Chain) Len() int { return len(c.steps) }

func (c *Chain) Transcribe(ctx context.Context, path string) (string, error) {
	if len(c.steps) == 0 {
		return "", ErrNoTranscriber
	}

	var errs []error
	for i, step := range c.steps {
		text, err := step.Transcribe(ctx, path)
		if err == nil {
			return text, nil
		}
		c.logger.Warn("Transcriber failed, trying next", "step", i, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrTranscription, errors.Join(errs...))
}
