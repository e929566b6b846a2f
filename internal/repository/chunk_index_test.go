//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/jerry-assistant/ragcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vec1536 pads a short prefix out to the table's vector width.
func vec1536(prefix ...float32) []float32 {
	v := make([]float32, 1536)
	copy(v, prefix)
	return v
}

func storedChunk(documentID, content string, embedding []float32, metadata map[string]string) *domain.KnowledgeChunk {
	c := domain.NewKnowledgeChunk(uuid.NewString(), documentID, "Doc "+documentID, content, 0, metadata)
	c.Embedding = embedding
	return c
}

func TestChunkIndex_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	idx := NewChunkIndex(pool)

	chunk := storedChunk("doc-1", "the quick brown fox", vec1536(1), map[string]string{"lang": "en"})
	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{chunk}))

	got, err := idx.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.DocumentID, got.DocumentID)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, map[string]string{"lang": "en"}, got.Metadata)
	assert.Len(t, got.Embedding, 1536)

	// Upsert with the same ID replaces in place.
	chunk.Content = "updated content"
	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{chunk}))

	got, err = idx.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated content", got.Content)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = idx.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkIndex_QueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	idx := NewChunkIndex(pool)

	exact := storedChunk("doc-1", "exact match", vec1536(1, 0), nil)
	near := storedChunk("doc-1", "near match", vec1536(0.9, 0.1), nil)
	far := storedChunk("doc-2", "unrelated", vec1536(0, 1), nil)
	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{far, near, exact}))

	matches, err := idx.Query(ctx, vec1536(1, 0), 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, exact.ID, matches[0].Chunk.ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, near.ID, matches[1].Chunk.ID)
	assert.Equal(t, far.ID, matches[2].Chunk.ID)

	matches, err = idx.Query(ctx, vec1536(1, 0), 2, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestChunkIndex_QueryFilters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	idx := NewChunkIndex(pool)

	en := storedChunk("doc-1", "english text", vec1536(1, 0), map[string]string{"lang": "en"})
	de := storedChunk("doc-1", "german text", vec1536(0.9, 0.1), map[string]string{"lang": "de"})
	other := storedChunk("doc-2", "other doc", vec1536(0.8, 0.2), map[string]string{"lang": "en"})
	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{en, de, other}))

	matches, err := idx.Query(ctx, vec1536(1, 0), 10, map[string]string{"lang": "en"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, en.ID, matches[0].Chunk.ID)
	assert.Equal(t, other.ID, matches[1].Chunk.ID)

	matches, err = idx.Query(ctx, vec1536(1, 0), 10, map[string]string{"document_id": "doc-1", "lang": "en"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, en.ID, matches[0].Chunk.ID)
}

func TestChunkIndex_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	idx := NewChunkIndex(pool)

	a := storedChunk("doc-1", "first", vec1536(1), nil)
	b := storedChunk("doc-1", "second", vec1536(0, 1), nil)
	c := storedChunk("doc-2", "third", vec1536(1, 1), nil)
	require.NoError(t, idx.Upsert(ctx, []*domain.KnowledgeChunk{a, b, c}))

	removed, err := idx.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, idx.Delete(ctx, []string{c.ID}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
