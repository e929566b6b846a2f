package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jerry-assistant/ragcore/internal/api"
	"github.com/jerry-assistant/ragcore/internal/domain"
)

// RetrieverService is the slice of the retriever the HTTP layer needs.
type RetrieverService interface {
	Search(ctx context.Context, query string, filter map[string]string) []*domain.KnowledgeChunk
	GetContext(ctx context.Context, query string, maxLength int) (string, []*domain.KnowledgeChunk)
}

type RetrievalHandler struct {
	retriever RetrieverService
}

func NewRetrievalHandler(retriever RetrieverService) *RetrievalHandler {
	return &RetrievalHandler{retriever: retriever}
}

type SearchRequest struct {
	Query  string            `json:"query"`
	Filter map[string]string `json:"filter,omitempty"`
}

type ChunkResponse struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title,omitempty"`
	Content    string            `json:"content"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score"`
}

type SearchResponse struct {
	Results []*ChunkResponse `json:"results"`
}

type ContextRequest struct {
	Query     string `json:"query"`
	MaxLength int    `json:"max_length,omitempty"`
}

type ContextResponse struct {
	Context string           `json:"context"`
	Sources []*ChunkResponse `json:"sources"`
}

func (h *RetrievalHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	chunks := h.retriever.Search(r.Context(), req.Query, req.Filter)

	api.Success(w, http.StatusOK, SearchResponse{Results: toChunkResponses(chunks)})
}

func (h *RetrievalHandler) Context(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	text, sources := h.retriever.GetContext(r.Context(), req.Query, req.MaxLength)

	api.Success(w, http.StatusOK, ContextResponse{
		Context: text,
		Sources: toChunkResponses(sources),
	})
}

func toChunkResponses(chunks []*domain.KnowledgeChunk) []*ChunkResponse {
	responses := make([]*ChunkResponse, len(chunks))
	for i, chunk := range chunks {
		responses[i] = &ChunkResponse{
			ID:         chunk.ID,
			DocumentID: chunk.DocumentID,
			Title:      chunk.Title,
			Content:    chunk.Content,
			ChunkIndex: chunk.ChunkIndex,
			Metadata:   chunk.Metadata,
			Score:      chunk.RelevanceScore,
		}
	}
	return responses
}
