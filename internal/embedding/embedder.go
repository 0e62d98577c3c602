// Package embedding turns text into fixed-length vectors.
//
// Ingestion and retrieval share one Embedder so that stored and query
// vectors come from the same model and have the same dimension.
package embedding

import (
	"context"
	"fmt"
)

// Embedder computes the embedding of a single text.
type Embedder interface {
	// Embed returns a vector of exactly Dimension() values, or an error
	// wrapping ErrUnavailable or ErrFailure.
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// Unavailable is the Embedder used when no provider is configured. Every
// call fails with Err, which lets callers degrade instead of refusing to start.
type Unavailable struct {
	Err       error
	ModelName string
	Dim       int
}

// NewUnavailable wraps cause so that it matches ErrUnavailable.
func NewUnavailable(cause error, model string, dim int) *Unavailable {
	err := cause
	if err == nil {
		err = ErrUnavailable
	}
	return &Unavailable{Err: err, ModelName: model, Dim: dim}
}

func (u *Unavailable) Embed(context.Context, string) ([]float32, error) {
	if u.Err == nil {
		return nil, ErrUnavailable
	}
	return nil, u.Err
}

func (u *Unavailable) Model() string { return u.ModelName }

func (u *Unavailable) Dimension() int { return u.Dim }

// checkDimension verifies a provider response against the pinned dimension.
func checkDimension(vec []float32, want int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrFailure)
	}
	if len(vec) != want {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrFailure, len(vec), want)
	}
	return nil
}

// toFloat32 converts []float64 to []float32.
// The API returns float64; storage keeps float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
