package embedding

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches the dimension of the small sentence
// transformer the production provider replaced.
const DefaultHashDimensions = 384

// HashProvider derives deterministic bag-of-words pseudo-embeddings.
// Every token maps to a fixed md5-derived vector; a text's embedding is
// the normalized sum of its token vectors, so identical text always maps
// to the identical vector and texts sharing vocabulary land near each
// other. This makes retrieval and cache behavior testable without a
// model, and the provider usable as a degraded offline fallback.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hash provider with the given dimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultHashDimensions
	}
	return &HashProvider{dim: dimension}
}

// Dimension returns the configured vector dimension.
func (p *HashProvider) Dimension() int {
	return p.dim
}

// EncodeOne derives the vector for a single text. Blank text yields a zero
// vector.
func (p *HashProvider) EncodeOne(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ZeroVector(p.dim), nil
	}

	acc := make([]float64, p.dim)
	for _, token := range tokens {
		p.addTokenVector(acc, token)
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, p.dim)
	if norm > 0 {
		for i, v := range acc {
			vec[i] = float32(v / norm)
		}
	}
	return vec, nil
}

// EncodeMany derives vectors item by item, preserving order.
func (p *HashProvider) EncodeMany(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EncodeOne(ctx, text)
		if err != nil {
			vec = ZeroVector(p.dim)
		}
		result[i] = vec
	}
	return result, nil
}

// addTokenVector accumulates the token's fixed pseudo-random vector,
// generated from an md5 chain seeded by the token.
func (p *HashProvider) addTokenVector(acc []float64, token string) {
	filled := 0
	for block := 0; filled < p.dim; block++ {
		digest := md5.Sum([]byte(fmt.Sprintf("%s:%d", token, block)))
		for i := 0; i+4 <= len(digest) && filled < p.dim; i += 4 {
			raw := int32(binary.LittleEndian.Uint32(digest[i : i+4]))
			acc[filled] += float64(raw) / float64(math.MaxInt32)
			filled++
		}
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
