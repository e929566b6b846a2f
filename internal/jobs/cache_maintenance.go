package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jerry-assistant/ragcore/internal/cache"
)

// CacheOptimizer is the slice of the cache the maintenance job needs.
type CacheOptimizer interface {
	Optimize(ctx context.Context) (*cache.OptimizeResult, error)
}

// CacheMaintenance sweeps the semantic cache on a schedule so expired
// entries cannot accumulate between the probabilistic write-path sweeps.
type CacheMaintenance struct {
	cache  CacheOptimizer
	logger *slog.Logger
}

// NewCacheMaintenance creates a cache maintenance processor.
func NewCacheMaintenance(optimizer CacheOptimizer, logger *slog.Logger) *CacheMaintenance {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheMaintenance{cache: optimizer, logger: logger}
}

// ProcessJobs implements the JobProcessor interface
func (m *CacheMaintenance) ProcessJobs(ctx context.Context) error {
	result, err := m.cache.Optimize(ctx)
	if err != nil {
		return fmt.Errorf("failed to optimize cache: %w", err)
	}

	if result.ExpiredRemoved > 0 || result.Evicted > 0 {
		m.logger.Info("cache maintenance pass",
			"expired_removed", result.ExpiredRemoved, "evicted", result.Evicted)
	}
	return nil
}
