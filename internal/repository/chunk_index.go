// Package repository persists knowledge chunks in PostgreSQL with
// pgvector for nearest-neighbor search.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/jerry-assistant/ragcore/internal/index"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkIndex is the pgvector-backed implementation of index.Index.
// Distances come from the `<=>` cosine-distance operator, so callers get
// the same [0, 2] range the in-memory index produces.
type ChunkIndex struct {
	db dbtx
}

var _ index.Index = (*ChunkIndex)(nil)

func NewChunkIndex(pool *pgxpool.Pool) *ChunkIndex {
	return &ChunkIndex{db: pool}
}

func NewChunkIndexWithTx(tx pgx.Tx) *ChunkIndex {
	return &ChunkIndex{db: tx}
}

// Upsert inserts or replaces chunks by ID.
func (r *ChunkIndex) Upsert(ctx context.Context, chunks []*domain.KnowledgeChunk) error {
	for _, c := range chunks {
		if err := domain.ValidateKnowledgeChunk(c); err != nil {
			return err
		}

		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(id, document_id, title, content, chunk_index, metadata, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				chunk_index = EXCLUDED.chunk_index,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = EXCLUDED.updated_at`,
			c.ID,
			c.DocumentID,
			c.Title,
			c.Content,
			c.ChunkIndex,
			metadata,
			pgvector.NewVector(c.Embedding),
			createdAt,
			updatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (r *ChunkIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE id = ANY($1)`, ids)
	return err
}

// DeleteByDocument removes every chunk belonging to a document.
func (r *ChunkIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Query returns up to k matches ordered by ascending cosine distance.
func (r *ChunkIndex) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]index.Match, error) {
	if k <= 0 {
		return []index.Match{}, nil
	}

	vec := pgvector.NewVector(vector)
	query := `
		SELECT id, document_id, title, content, chunk_index, metadata, embedding, created_at, updated_at,
		       embedding <=> $1 AS distance
		FROM knowledge_chunks
		WHERE embedding IS NOT NULL`
	args := []any{vec}

	if documentID, ok := filter["document_id"]; ok {
		args = append(args, documentID)
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if metadataFilter := stripReservedKeys(filter); len(metadataFilter) > 0 {
		encoded, err := json.Marshal(metadataFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata filter: %w", err)
		}
		args = append(args, encoded)
		query += fmt.Sprintf(" AND metadata @> $%d", len(args))
	}

	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY distance ASC, id ASC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]index.Match, 0, k)
	for rows.Next() {
		var match index.Match
		chunk, distance, err := scanChunkWithDistance(rows)
		if err != nil {
			return nil, err
		}
		match.Chunk = chunk
		match.Distance = distance
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// Get returns a chunk by ID.
func (r *ChunkIndex) Get(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, document_id, title, content, chunk_index, metadata, embedding, created_at, updated_at
		 FROM knowledge_chunks WHERE id = $1`,
		id,
	)
	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// Count returns the number of stored chunks.
func (r *ChunkIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&count)
	return count, err
}

// Reset removes all stored chunks.
func (r *ChunkIndex) Reset(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks`)
	return err
}

func stripReservedKeys(filter map[string]string) map[string]string {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]string, len(filter))
	for key, value := range filter {
		if key == "document_id" {
			continue
		}
		out[key] = value
	}
	return out
}

func scanChunk(row pgx.Row) (*domain.KnowledgeChunk, error) {
	var c domain.KnowledgeChunk
	var metadata []byte
	var embedding pgvector.Vector
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.Title, &c.Content, &c.ChunkIndex,
		&metadata, &embedding, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return finishChunkScan(&c, metadata, embedding)
}

func scanChunkWithDistance(row pgx.Row) (*domain.KnowledgeChunk, float64, error) {
	var c domain.KnowledgeChunk
	var metadata []byte
	var embedding pgvector.Vector
	var distance float64
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.Title, &c.Content, &c.ChunkIndex,
		&metadata, &embedding, &c.CreatedAt, &c.UpdatedAt, &distance,
	)
	if err != nil {
		return nil, 0, err
	}
	chunk, err := finishChunkScan(&c, metadata, embedding)
	return chunk, distance, err
}

func finishChunkScan(c *domain.KnowledgeChunk, metadata []byte, embedding pgvector.Vector) (*domain.KnowledgeChunk, error) {
	c.Metadata = map[string]string{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
		}
	}
	c.Embedding = embedding.Slice()
	return c, nil
}
