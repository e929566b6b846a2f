// Package index defines the vector index contract consumed by the
// retriever and the ingestion pipeline, plus an in-process implementation.
package index

import (
	"context"

	"github.com/jerry-assistant/ragcore/internal/domain"
)

// Match pairs a stored chunk with its distance from the query vector.
// Distance ascends with dissimilarity; Similarity converts it to a
// [0, 1] score.
type Match struct {
	Chunk    *domain.KnowledgeChunk
	Distance float64
}

// Index stores chunk vectors with metadata and answers nearest-neighbor
// queries. Implementations must be safe for concurrent use.
type Index interface {
	// Upsert inserts or replaces chunks by ID.
	Upsert(ctx context.Context, chunks []*domain.KnowledgeChunk) error

	// Delete removes chunks by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByDocument removes every chunk belonging to a document and
	// reports how many were removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Query returns up to k matches ordered by ascending distance.
	// A non-empty filter restricts results to chunks whose metadata
	// contains every given key/value pair.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Match, error)

	// Get returns a chunk by ID, or domain.ErrChunkNotFound.
	Get(ctx context.Context, id string) (*domain.KnowledgeChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset removes all stored chunks.
	Reset(ctx context.Context) error
}

// Similarity converts an index distance into a similarity score. Cosine
// distances range over [0, 2]; the score is clamped to [0, 1].
func Similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// MatchesFilter reports whether the chunk's metadata (plus its document
// ID under the reserved "document_id" key) contains every filter pair.
func MatchesFilter(chunk *domain.KnowledgeChunk, filter map[string]string) bool {
	for key, want := range filter {
		if key == "document_id" {
			if chunk.DocumentID != want {
				return false
			}
			continue
		}
		if got, ok := chunk.Metadata[key]; !ok || got != want {
			return false
		}
	}
	return true
}
