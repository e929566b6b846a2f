package domain

import (
	"time"
)

// CacheEntry represents a cached model response keyed by the embedding of
// the query that produced it.
type CacheEntry struct {
	ID             string
	QueryHash      string
	QueryText      string
	QueryEmbedding []float32
	Response       string
	ModelUsed      string
	ContextHash    string
	CreatedAt      time.Time
	LastAccessed   time.Time
	AccessCount    int64
	TTLSeconds     int64
	ExpiresAt      time.Time
}

// NewCacheEntry creates a cache entry with ExpiresAt derived from the TTL.
// AccessCount starts at 1: storing an entry counts as its first access.
func NewCacheEntry(id, queryHash, queryText string, embedding []float32, response, modelUsed, contextHash string, ttl time.Duration, now time.Time) *CacheEntry {
	now = now.UTC()
	return &CacheEntry{
		ID:             id,
		QueryHash:      queryHash,
		QueryText:      queryText,
		QueryEmbedding: embedding,
		Response:       response,
		ModelUsed:      modelUsed,
		ContextHash:    contextHash,
		CreatedAt:      now,
		LastAccessed:   now,
		AccessCount:    1,
		TTLSeconds:     int64(ttl / time.Second),
		ExpiresAt:      now.Add(ttl),
	}
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ValidateCacheEntry validates a CacheEntry instance.
func ValidateCacheEntry(e *CacheEntry) error {
	if e == nil {
		return NewDomainError(ErrCodeValidation, "cache entry cannot be nil")
	}
	if e.ID == "" {
		return NewDomainError(ErrCodeValidation, "cache entry ID is required")
	}
	if e.QueryHash == "" {
		return NewDomainError(ErrCodeValidation, "cache entry QueryHash is required")
	}
	if e.Response == "" {
		return NewDomainError(ErrCodeValidation, "cache entry Response is required")
	}
	if e.AccessCount < 1 {
		return NewDomainError(ErrCodeValidation, "cache entry AccessCount must be at least 1")
	}
	if !e.ExpiresAt.After(e.CreatedAt) {
		return NewDomainError(ErrCodeValidation, "cache entry ExpiresAt must be after CreatedAt")
	}
	return nil
}
