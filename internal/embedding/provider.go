// Package embedding defines the embedding provider contract and its
// implementations. Providers turn text into fixed-dimension vectors; the
// dimension is set at construction and is an index-wide invariant.
package embedding

import (
	"context"
)

// Provider generates fixed-dimension embedding vectors for text.
type Provider interface {
	// EncodeOne embeds a single text. Blank input yields a zero vector
	// rather than an error.
	EncodeOne(ctx context.Context, text string) ([]float32, error)

	// EncodeMany embeds a batch of texts, preserving order. Blank or
	// failed items are substituted with zero vectors; a partial failure
	// never aborts the batch.
	EncodeMany(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension D.
	Dimension() int
}

// ZeroVector returns an all-zero vector of the given dimension.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}

// IsZero reports whether every component of the vector is zero.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
