package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jerry-assistant/ragcore/internal/domain"
)

// Memory is an in-process Index backed by a map and exact cosine-distance
// scans. It serves tests and small single-node deployments where an
// external vector store is not worth operating.
type Memory struct {
	mu     sync.RWMutex
	chunks map[string]*domain.KnowledgeChunk
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{chunks: make(map[string]*domain.KnowledgeChunk)}
}

// Upsert inserts or replaces chunks by ID.
func (m *Memory) Upsert(_ context.Context, chunks []*domain.KnowledgeChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		if err := domain.ValidateKnowledgeChunk(chunk); err != nil {
			return err
		}
		cloned := *chunk
		m.chunks[chunk.ID] = &cloned
	}
	return nil
}

// Delete removes chunks by ID.
func (m *Memory) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.chunks, id)
	}
	return nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (m *Memory) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			delete(m.chunks, id)
			removed++
		}
	}
	return removed, nil
}

// Query scans all stored chunks and returns the k nearest by cosine
// distance, ascending.
func (m *Memory) Query(_ context.Context, vector []float32, k int, filter map[string]string) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		if !MatchesFilter(chunk, filter) {
			continue
		}
		cloned := *chunk
		matches = append(matches, Match{
			Chunk:    &cloned,
			Distance: CosineDistance(vector, chunk.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Get returns a chunk by ID.
func (m *Memory) Get(_ context.Context, id string) (*domain.KnowledgeChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrChunkNotFound
	}
	cloned := *chunk
	return &cloned, nil
}

// Count returns the number of stored chunks.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Reset removes all stored chunks.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*domain.KnowledgeChunk)
	return nil
}

// CosineDistance computes 1 - cosine similarity. Vectors with zero
// magnitude are maximally distant.
func CosineDistance(a, b []float32) float64 {
	var dot, magA, magB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}
