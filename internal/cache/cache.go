// Package cache implements a semantic response cache: lookups match on
// embedding similarity rather than exact query text, so paraphrased
// queries reuse earlier model responses.
package cache

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/jerry-assistant/ragcore/internal/telemetry"
)

// Encoder is the embedding dependency the cache needs.
type Encoder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
}

// Config controls matching and retention.
type Config struct {
	// SimilarityThreshold is deliberately strict: two queries must be
	// near-paraphrases before one's response answers the other.
	SimilarityThreshold float64
	DefaultTTL          time.Duration
	MaxSize             int
	SweepProbability    float64
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.95,
		DefaultTTL:          time.Hour,
		MaxSize:             1000,
		SweepProbability:    0.01,
	}
}

// evictionHeadroom is how far below MaxSize eviction trims, so a burst
// of inserts does not evict on every call.
const evictionHeadroom = 100

// Cache matches queries against stored entries by embedding similarity.
// Store and provider failures degrade to misses; no error escapes the
// public surface.
type Cache struct {
	store   Store
	encoder Encoder
	cfg     Config
	logger  *slog.Logger

	// test seams
	now    func() time.Time
	random func() float64
}

// New creates a cache with the default configuration.
func New(store Store, encoder Encoder, logger *slog.Logger) *Cache {
	return NewWithConfig(store, encoder, DefaultConfig(), logger)
}

// NewWithConfig creates a cache with explicit configuration.
func NewWithConfig(store Store, encoder Encoder, cfg Config, logger *slog.Logger) *Cache {
	defaults := DefaultConfig()
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaults.DefaultTTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaults.MaxSize
	}
	if cfg.SweepProbability <= 0 || cfg.SweepProbability > 1 {
		cfg.SweepProbability = defaults.SweepProbability
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:   store,
		encoder: encoder,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		random:  rand.Float64,
	}
}

// DefaultTTL returns the configured default entry lifetime.
func (c *Cache) DefaultTTL() time.Duration {
	return c.cfg.DefaultTTL
}

// Get returns the cached response for a semantically equivalent query,
// if one exists. Candidates are restricted to the same context hash and
// model; the best match must meet the similarity threshold. Blank
// queries and any store or provider failure are misses.
func (c *Cache) Get(ctx context.Context, query string, contextData map[string]string, model string) (string, bool) {
	ctx, span := telemetry.StartSpan(ctx, "Cache.Get", telemetry.SpanAttributes{
		Model:     model,
		Operation: "cache_get",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	contextHash := ContextHash(contextData)
	queryHash := QueryHash(query, contextHash, model)

	vector, err := c.encoder.EncodeOne(ctx, query)
	if err != nil {
		c.logger.Error("cache lookup encoding failed", "op", "cache_get", "query_hash", queryHash[:8], "error", err)
		return "", false
	}

	now := c.now()
	candidates, err := c.store.Candidates(ctx, contextHash, model, now)
	if err != nil {
		c.logger.Error("cache candidate scan failed", "op", "cache_get", "query_hash", queryHash[:8], "error", err)
		return "", false
	}

	var best *domain.CacheEntry
	bestSim := 0.0
	for _, candidate := range candidates {
		sim := CosineSimilarity(vector, candidate.QueryEmbedding)
		if sim > bestSim {
			bestSim = sim
			best = candidate
		}
	}

	if best == nil || bestSim < c.cfg.SimilarityThreshold {
		return "", false
	}

	if err := c.store.Touch(ctx, best.ID, now); err != nil {
		// The response is still good; only the access bookkeeping is stale.
		c.logger.Warn("cache touch failed", "op", "cache_get", "query_hash", queryHash[:8], "error", err)
	}
	return best.Response, true
}

// Put stores a response for later semantic lookup. Returns false for
// blank query or response, non-positive TTL, or any store or provider
// failure. A successful Put occasionally sweeps expired entries and
// enforces the size cap.
func (c *Cache) Put(ctx context.Context, query, response string, contextData map[string]string, model string, ttl time.Duration) bool {
	ctx, span := telemetry.StartSpan(ctx, "Cache.Put", telemetry.SpanAttributes{
		Model:     model,
		Operation: "cache_put",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" || strings.TrimSpace(response) == "" || ttl <= 0 {
		return false
	}
	contextHash := ContextHash(contextData)
	queryHash := QueryHash(query, contextHash, model)

	vector, err := c.encoder.EncodeOne(ctx, query)
	if err != nil {
		c.logger.Error("cache store encoding failed", "op", "cache_put", "query_hash", queryHash[:8], "error", err)
		return false
	}

	now := c.now()
	entry := domain.NewCacheEntry(
		uuid.NewString(), queryHash, query, vector,
		response, model, contextHash, ttl, now,
	)
	if err := c.store.Insert(ctx, entry); err != nil {
		c.logger.Error("cache insert failed", "op", "cache_put", "query_hash", queryHash[:8], "error", err)
		return false
	}

	if c.random() < c.cfg.SweepProbability {
		if removed, err := c.store.DeleteExpired(ctx, now); err != nil {
			c.logger.Warn("cache expiry sweep failed", "op", "cache_put", "error", err)
		} else if removed > 0 {
			c.logger.Debug("cache expiry sweep", "removed", removed)
		}
	}

	c.enforceCapacity(ctx)
	return true
}

func (c *Cache) enforceCapacity(ctx context.Context) {
	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("cache count failed", "op", "cache_put", "error", err)
		return
	}
	if count <= c.cfg.MaxSize {
		return
	}

	keep := c.cfg.MaxSize - evictionHeadroom
	if keep < 0 {
		keep = 0
	}
	evicted, err := c.store.EvictLRU(ctx, keep)
	if err != nil {
		c.logger.Warn("cache eviction failed", "op", "cache_put", "error", err)
		return
	}
	c.logger.Info("cache evicted least recently used entries", "evicted", evicted, "kept", keep)
}

// Clear removes all entries and reports how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	return c.store.Clear(ctx)
}

// Stats reports the store's current contents.
func (c *Cache) Stats(ctx context.Context) (*StoreStats, error) {
	return c.store.Stats(ctx, c.now())
}

// OptimizeResult reports the work done by Optimize.
type OptimizeResult struct {
	ExpiredRemoved int
	Evicted        int
}

// Optimize sweeps expired entries, trims to the size cap, and compacts
// the store. Long-running daemons call this periodically so expired
// entries cannot accumulate between probabilistic sweeps.
func (c *Cache) Optimize(ctx context.Context) (*OptimizeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Cache.Optimize", telemetry.SpanAttributes{
		Operation: "cache_optimize",
	})
	defer span.End()

	result := &OptimizeResult{}

	expired, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		return nil, err
	}
	result.ExpiredRemoved = expired

	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > c.cfg.MaxSize {
		evicted, err := c.store.EvictLRU(ctx, c.cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		result.Evicted = evicted
	}

	if err := c.store.Vacuum(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
