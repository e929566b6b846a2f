package domain

import (
	"time"
)

// KnowledgeChunk represents a bounded segment of a source document stored
// with its own embedding for retrieval.
type KnowledgeChunk struct {
	ID         string
	DocumentID string
	Title      string
	Content    string
	Embedding  []float32
	Metadata   map[string]string
	ChunkIndex int
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// RelevanceScore is transient: zero in storage, set only on retrieval
	// results, always within [0, 1].
	RelevanceScore float64
}

// NewKnowledgeChunk creates a chunk for the given document content.
// The embedding is populated later by an embedding provider.
func NewKnowledgeChunk(id, documentID, title, content string, chunkIndex int, metadata map[string]string) *KnowledgeChunk {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &KnowledgeChunk{
		ID:         id,
		DocumentID: documentID,
		Title:      title,
		Content:    content,
		Metadata:   metadata,
		ChunkIndex: chunkIndex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SetEmbedding replaces the chunk's embedding and bumps UpdatedAt.
func (c *KnowledgeChunk) SetEmbedding(embedding []float32) {
	c.Embedding = embedding
	c.UpdatedAt = time.Now().UTC()
}

// ValidateKnowledgeChunk validates a KnowledgeChunk instance.
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "knowledge chunk cannot be nil")
	}
	if c.ID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge chunk ID is required")
	}
	if c.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge chunk DocumentID is required")
	}
	if c.Content == "" {
		return NewDomainError(ErrCodeValidation, "knowledge chunk Content is required")
	}
	if c.ChunkIndex < 0 {
		return NewDomainError(ErrCodeValidation, "knowledge chunk ChunkIndex cannot be negative")
	}
	return nil
}
