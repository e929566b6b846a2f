package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storeEntry(query, response, contextHash, model string, ttl time.Duration, now time.Time) *domain.CacheEntry {
	return domain.NewCacheEntry(
		uuid.NewString(), QueryHash(query, contextHash, model), query, []float32{1, 0, 0},
		response, model, contextHash, ttl, now,
	)
}

func TestSQLiteStoreUpsertByQueryHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := storeEntry("same query", "first response", "ctx", "m", time.Hour, now)
	require.NoError(t, store.Insert(ctx, first))

	second := storeEntry("same query", "second response", "ctx", "m", time.Hour, now)
	require.NoError(t, store.Insert(ctx, second))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "same query hash replaces, never duplicates")

	candidates, err := store.Candidates(ctx, "ctx", "m", now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "second response", candidates[0].Response)
	assert.Equal(t, []float32{1, 0, 0}, candidates[0].QueryEmbedding)
}

func TestSQLiteStoreInsertRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	bad := storeEntry("q", "r", "ctx", "m", time.Hour, now)
	bad.Response = ""
	assert.Error(t, store.Insert(context.Background(), bad))
}

func TestSQLiteStoreCandidatesExcludeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, storeEntry("short", "r1", "ctx", "m", time.Minute, now)))
	require.NoError(t, store.Insert(ctx, storeEntry("long", "r2", "ctx", "m", time.Hour, now)))

	candidates, err := store.Candidates(ctx, "ctx", "m", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "r2", candidates[0].Response)

	// Exactly at expiry counts as expired.
	candidates, err = store.Candidates(ctx, "ctx", "m", now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "r2", candidates[0].Response)
}

func TestSQLiteStoreTouch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := storeEntry("q", "r", "ctx", "m", time.Hour, now)
	require.NoError(t, store.Insert(ctx, entry))

	later := now.Add(10 * time.Minute)
	require.NoError(t, store.Touch(ctx, entry.ID, later))
	require.NoError(t, store.Touch(ctx, entry.ID, later.Add(time.Minute)))

	candidates, err := store.Candidates(ctx, "ctx", "m", now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(3), candidates[0].AccessCount)
	assert.Equal(t, later.Add(time.Minute), candidates[0].LastAccessed)
}

func TestSQLiteStoreDeleteExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, storeEntry("a", "r", "ctx", "m", time.Minute, now)))
	require.NoError(t, store.Insert(ctx, storeEntry("b", "r", "ctx", "m", time.Hour, now)))

	removed, err := store.DeleteExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreEvictLRUKeepsMostRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := storeEntry(fmt.Sprintf("query %d", i), "r", "ctx", "m", time.Hour, now)
		require.NoError(t, store.Insert(ctx, entry))
		// Stagger access times: higher i means more recently used.
		require.NoError(t, store.Touch(ctx, entry.ID, now.Add(time.Duration(i)*time.Minute)))
	}

	evicted, err := store.EvictLRU(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, evicted)

	candidates, err := store.Candidates(ctx, "ctx", "m", now)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	survivors := map[string]bool{}
	for _, c := range candidates {
		survivors[c.QueryText] = true
	}
	assert.True(t, survivors["query 3"])
	assert.True(t, survivors["query 4"])
}

func TestSQLiteStoreVacuumAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, storeEntry("q", "r", "ctx", "m", time.Hour, now)))

	removed, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, store.Vacuum(ctx))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 0, 3.25e-7, 1}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
	assert.Empty(t, decodeVector(nil))
}
