package index

import (
	"context"
	"testing"

	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(id, documentID string, embedding []float32, metadata map[string]string) *domain.KnowledgeChunk {
	chunk := domain.NewKnowledgeChunk(id, documentID, "Title "+id, "content of "+id, 0, metadata)
	chunk.Embedding = embedding
	return chunk
}

func TestMemoryUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{
		testChunk("a", "doc-1", []float32{1, 0}, nil),
	}))

	got, err := idx.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)

	_, err = idx.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryUpsertRejectsInvalidChunk(t *testing.T) {
	idx := NewMemory()
	bad := testChunk("a", "doc-1", nil, nil)
	bad.Content = ""

	err := idx.Upsert(context.Background(), []*domain.KnowledgeChunk{bad})
	assert.Error(t, err)
}

func TestMemoryQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{
		testChunk("exact", "doc-1", []float32{1, 0}, nil),
		testChunk("close", "doc-1", []float32{0.9, 0.1}, nil),
		testChunk("orthogonal", "doc-2", []float32{0, 1}, nil),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "exact", matches[0].Chunk.ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
	assert.Equal(t, "close", matches[1].Chunk.ID)
	assert.Equal(t, "orthogonal", matches[2].Chunk.ID)

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
}

func TestMemoryQueryLimitAndFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{
		testChunk("a", "doc-1", []float32{1, 0}, map[string]string{"lang": "en"}),
		testChunk("b", "doc-1", []float32{0.9, 0.1}, map[string]string{"lang": "de"}),
		testChunk("c", "doc-2", []float32{0.8, 0.2}, map[string]string{"lang": "en"}),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = idx.Query(ctx, []float32{1, 0}, 10, map[string]string{"lang": "en"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Chunk.ID)
	assert.Equal(t, "c", matches[1].Chunk.ID)

	matches, err = idx.Query(ctx, []float32{1, 0}, 10, map[string]string{"document_id": "doc-2"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].Chunk.ID)
}

func TestMemoryDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{
		testChunk("a", "doc-1", []float32{1, 0}, nil),
		testChunk("b", "doc-1", []float32{0, 1}, nil),
		testChunk("c", "doc-2", []float32{1, 1}, nil),
	}))

	removed, err := idx.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, idx.Reset(ctx))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityClamped(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.0, Similarity(1))
	assert.Equal(t, 0.0, Similarity(2), "out-of-range distance clamps to zero")
	assert.Equal(t, 1.0, Similarity(-0.5), "negative distance clamps to one")
	assert.InDelta(t, 0.25, Similarity(0.75), 1e-9)
}
