package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(384)
	ctx := context.Background()

	a1, err := p.EncodeOne(ctx, "what is the capital of France?")
	require.NoError(t, err)
	a2, err := p.EncodeOne(ctx, "what is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Len(t, a1, 384)
}

func TestHashProviderDistinctTexts(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()

	a, err := p.EncodeOne(ctx, "alpha")
	require.NoError(t, err)
	b, err := p.EncodeOne(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashProviderBlankText(t *testing.T) {
	p := NewHashProvider(16)
	ctx := context.Background()

	vec, err := p.EncodeOne(ctx, "   \n  ")
	require.NoError(t, err)
	assert.True(t, IsZero(vec))
	assert.Len(t, vec, 16)
}

func TestHashProviderComponentsBounded(t *testing.T) {
	p := NewHashProvider(128)

	vec, err := p.EncodeOne(context.Background(), "bounded components")
	require.NoError(t, err)
	for i, v := range vec {
		assert.GreaterOrEqual(t, float64(v), -1.0, "component %d", i)
		assert.LessOrEqual(t, float64(v), 1.0, "component %d", i)
	}
}

func TestHashProviderSharedVocabularyIsCloser(t *testing.T) {
	p := NewHashProvider(384)
	ctx := context.Background()

	query, err := p.EncodeOne(ctx, "tune postgres vacuum settings")
	require.NoError(t, err)
	related, err := p.EncodeOne(ctx, "Tune postgres vacuum settings for heavy workloads.")
	require.NoError(t, err)
	unrelated, err := p.EncodeOne(ctx, "deploy with rolling restarts and health checks")
	require.NoError(t, err)

	assert.Greater(t, cosine(query, related), 0.5)
	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashProviderEncodeMany(t *testing.T) {
	p := NewHashProvider(32)
	ctx := context.Background()

	vectors, err := p.EncodeMany(ctx, []string{"first", "", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	first, _ := p.EncodeOne(ctx, "first")
	third, _ := p.EncodeOne(ctx, "third")

	assert.Equal(t, first, vectors[0])
	assert.True(t, IsZero(vectors[1]), "blank item must be a zero vector")
	assert.Equal(t, third, vectors[2])
}

func TestHashProviderDefaultDimension(t *testing.T) {
	p := NewHashProvider(0)
	assert.Equal(t, DefaultHashDimensions, p.Dimension())
}
