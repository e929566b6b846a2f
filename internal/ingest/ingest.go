// Package ingest turns source documents into embedded knowledge chunks
// and loads them into a vector index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jerry-assistant/ragcore/internal/chunking"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/jerry-assistant/ragcore/internal/embedding"
	"github.com/jerry-assistant/ragcore/internal/index"
	"github.com/jerry-assistant/ragcore/internal/telemetry"
)

// Document is a unit of source material to ingest.
type Document struct {
	ID       string
	Title    string
	Content  string
	Metadata map[string]string
}

// Result reports what a single ingestion did.
type Result struct {
	DocumentID    string
	ChunksStored  int
	ChunksSkipped int
	Replaced      int
}

// Encoder is the embedding dependency the ingestion pipeline needs.
type Encoder interface {
	EncodeMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Service chunks, embeds, and stores documents. Re-ingesting a document
// replaces its chunks wholesale.
type Service struct {
	chunker *chunking.Chunker
	encoder Encoder
	index   index.Index
	logger  *slog.Logger
}

// New creates an ingestion service. A nil chunker gets the default
// configuration.
func New(chunker *chunking.Chunker, encoder Encoder, idx index.Index, logger *slog.Logger) *Service {
	if chunker == nil {
		chunker = chunking.New(chunking.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chunker: chunker,
		encoder: encoder,
		index:   idx,
		logger:  logger,
	}
}

// IngestDocument chunks and embeds a document, then replaces any chunks
// previously stored for it. Chunks whose embedding fails are skipped
// rather than failing the whole document.
func (s *Service) IngestDocument(ctx context.Context, doc Document) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "Ingest.IngestDocument", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	if doc.ID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	pieces := s.chunker.Chunk(doc.Content)
	if len(pieces) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document has no content to ingest")
	}

	vectors, err := s.encoder.EncodeMany(ctx, pieces)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "failed to embed document chunks", err)
	}

	chunks := make([]*domain.KnowledgeChunk, 0, len(pieces))
	skipped := 0
	for i, piece := range pieces {
		if i >= len(vectors) || embedding.IsZero(vectors[i]) {
			skipped++
			continue
		}
		chunk := domain.NewKnowledgeChunk(chunkID(doc.ID, i), doc.ID, doc.Title, piece, i, cloneMetadata(doc.Metadata))
		chunk.Embedding = vectors[i]
		chunks = append(chunks, chunk)
	}

	replaced, err := s.index.DeleteByDocument(ctx, doc.ID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndex, "failed to clear previous chunks", err)
	}
	if len(chunks) > 0 {
		if err := s.index.Upsert(ctx, chunks); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeIndex, "failed to store chunks", err)
		}
	}

	if skipped > 0 {
		s.logger.Warn("some chunks stored without embeddings were skipped",
			"document_id", doc.ID, "skipped", skipped)
	}
	s.logger.Info("document ingested",
		"document_id", doc.ID, "chunks", len(chunks), "replaced", replaced)

	return &Result{
		DocumentID:    doc.ID,
		ChunksStored:  len(chunks),
		ChunksSkipped: skipped,
		Replaced:      replaced,
	}, nil
}

// DeleteDocument removes every stored chunk of a document.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	removed, err := s.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIndex, "failed to delete document chunks", err)
	}
	return removed, nil
}

// IngestSource ingests every document a source lists. Per-document
// failures are logged and skipped; only listing failures abort.
func (s *Service) IngestSource(ctx context.Context, source Source) ([]*Result, error) {
	keys, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source documents: %w", err)
	}

	results := make([]*Result, 0, len(keys))
	for _, key := range keys {
		doc, err := source.Fetch(ctx, key)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "key", key, "error", err)
			continue
		}
		result, err := s.IngestDocument(ctx, *doc)
		if err != nil {
			s.logger.Warn("skipping failed document", "key", key, "error", err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// chunkID derives a stable chunk identity so re-ingestion replaces
// rather than accumulates.
func chunkID(documentID string, i int) string {
	return fmt.Sprintf("%s:%04d", documentID, i)
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
