package handlers

import (
	"context"
	"net/http"

	"github.com/jerry-assistant/ragcore/internal/api"
	"github.com/jerry-assistant/ragcore/internal/cache"
)

// CacheService is the slice of the semantic cache exposed over HTTP.
type CacheService interface {
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*cache.StoreStats, error)
	Optimize(ctx context.Context) (*cache.OptimizeResult, error)
}

type CacheHandler struct {
	cache CacheService
}

func NewCacheHandler(svc CacheService) *CacheHandler {
	return &CacheHandler{cache: svc}
}

type StatsResponse struct {
	TotalEntries    int     `json:"total_entries"`
	ActiveEntries   int     `json:"active_entries"`
	ExpiredEntries  int     `json:"expired_entries"`
	MeanAccessCount float64 `json:"mean_access_count"`
	ApproxSizeBytes int64   `json:"approx_size_bytes"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

type OptimizeResponse struct {
	ExpiredRemoved int `json:"expired_removed"`
	Evicted        int `json:"evicted"`
}

func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		TotalEntries:    stats.TotalEntries,
		ActiveEntries:   stats.ActiveEntries,
		ExpiredEntries:  stats.ExpiredEntries,
		MeanAccessCount: stats.MeanAccessCount,
		ApproxSizeBytes: stats.ApproxSizeBytes,
	})
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.Clear(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClearResponse{Removed: removed})
}

func (h *CacheHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	result, err := h.cache.Optimize(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, OptimizeResponse{
		ExpiredRemoved: result.ExpiredRemoved,
		Evicted:        result.Evicted,
	})
}
