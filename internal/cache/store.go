package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/jerry-assistant/ragcore/internal/domain"
)

// Store persists cache entries. Implementations must be safe for
// concurrent use; Touch in particular must be a single atomic
// read-modify-write so concurrent hits never corrupt an entry.
type Store interface {
	// Insert upserts an entry by its query hash.
	Insert(ctx context.Context, entry *domain.CacheEntry) error

	// Candidates returns unexpired entries matching a context hash and
	// model, embeddings included.
	Candidates(ctx context.Context, contextHash, model string, now time.Time) ([]*domain.CacheEntry, error)

	// Touch records a hit: bumps access_count and sets last_accessed.
	Touch(ctx context.Context, id string, now time.Time) error

	// DeleteExpired removes entries past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Count returns the total number of entries, expired included.
	Count(ctx context.Context) (int, error)

	// EvictLRU deletes oldest-by-last_accessed entries until at most
	// keep remain.
	EvictLRU(ctx context.Context, keep int) (int, error)

	// Clear removes all entries.
	Clear(ctx context.Context) (int, error)

	// Stats summarizes the store's contents at the given instant.
	Stats(ctx context.Context, now time.Time) (*StoreStats, error)

	// Vacuum reclaims space after deletions where the backend supports it.
	Vacuum(ctx context.Context) error

	Close() error
}

// StoreStats summarizes the contents of a cache store.
type StoreStats struct {
	TotalEntries    int
	ActiveEntries   int
	ExpiredEntries  int
	MeanAccessCount float64
	ApproxSizeBytes int64
}

// QueryHash returns the exact-match identity of an entry: query text
// combined with its context partition and model. The store upserts on
// this hash, so the same question asked under a different context or
// model stores a separate entry instead of replacing the first.
func QueryHash(query, contextHash, model string) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(contextHash))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

// ContextHash fingerprints the request context so entries produced under
// different system prompts or user settings never collide. Pairs are
// hashed in key order, so equal maps always hash equally.
func ContextHash(contextData map[string]string) string {
	keys := make([]string, 0, len(contextData))
	for key := range contextData {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, key := range keys {
		h.Write([]byte(key))
		h.Write([]byte{'='})
		h.Write([]byte(contextData[key]))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CosineSimilarity returns dot(a,b)/(|a||b|), clamped to [0, 1]. Zero
// magnitude on either side yields 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
