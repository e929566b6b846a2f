package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jerry-assistant/ragcore/internal/api"
	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	chunks     []*domain.KnowledgeChunk
	context    string
	lastQuery  string
	lastFilter map[string]string
	lastMax    int
}

func (s *stubRetriever) Search(_ context.Context, query string, filter map[string]string) []*domain.KnowledgeChunk {
	s.lastQuery = query
	s.lastFilter = filter
	return s.chunks
}

func (s *stubRetriever) GetContext(_ context.Context, query string, maxLength int) (string, []*domain.KnowledgeChunk) {
	s.lastQuery = query
	s.lastMax = maxLength
	return s.context, s.chunks
}

func resultChunk(id string, score float64) *domain.KnowledgeChunk {
	chunk := domain.NewKnowledgeChunk(id, "doc-1", "Title "+id, "content of "+id, 0, map[string]string{"lang": "en"})
	chunk.RelevanceScore = score
	return chunk
}

func TestRetrievalHandler_Search(t *testing.T) {
	retriever := &stubRetriever{chunks: []*domain.KnowledgeChunk{
		resultChunk("a", 0.92),
		resultChunk("b", 0.81),
	}}
	handler := NewRetrievalHandler(retriever)

	body := `{"query": "how to restart", "filter": {"lang": "en"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "how to restart", retriever.lastQuery)
	assert.Equal(t, map[string]string{"lang": "en"}, retriever.lastFilter)

	var envelope struct {
		Data SearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Results, 2)
	assert.Equal(t, "a", envelope.Data.Results[0].ID)
	assert.InDelta(t, 0.92, envelope.Data.Results[0].Score, 1e-9)
	assert.Equal(t, "doc-1", envelope.Data.Results[0].DocumentID)
}

func TestRetrievalHandler_SearchRejectsEmptyQuery(t *testing.T) {
	handler := NewRetrievalHandler(&stubRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query": ""}`))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrievalHandler_SearchRejectsBadBody(t *testing.T) {
	handler := NewRetrievalHandler(&stubRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid request body", body.Error)
}

func TestRetrievalHandler_Context(t *testing.T) {
	retriever := &stubRetriever{
		context: "[Source: Title a]\ncontent of a",
		chunks:  []*domain.KnowledgeChunk{resultChunk("a", 0.9)},
	}
	handler := NewRetrievalHandler(retriever)

	body := `{"query": "restart", "max_length": 2000}`
	req := httptest.NewRequest(http.MethodPost, "/v1/context", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Context(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000, retriever.lastMax)

	var envelope struct {
		Data ContextResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Data.Context, "[Source: Title a]")
	require.Len(t, envelope.Data.Sources, 1)
	assert.Equal(t, "a", envelope.Data.Sources[0].ID)
}

func TestRetrievalHandler_ContextRejectsEmptyQuery(t *testing.T) {
	handler := NewRetrievalHandler(&stubRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/v1/context", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Context(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
