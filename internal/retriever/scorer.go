package retriever

import (
	"strings"

	"github.com/jerry-assistant/ragcore/internal/domain"
)

// Scorer turns a chunk's semantic similarity into its final relevance
// score. Implementations may fold in additional signals from the query
// and chunk text.
type Scorer interface {
	// Score returns the combined relevance for a candidate chunk.
	Score(query string, chunk *domain.KnowledgeChunk, semantic float64) float64

	// CandidateThreshold returns the semantic floor applied when
	// collecting candidates, given the configured threshold.
	CandidateThreshold(threshold float64) float64
}

// SemanticScorer ranks purely by embedding similarity.
type SemanticScorer struct{}

func (SemanticScorer) Score(_ string, _ *domain.KnowledgeChunk, semantic float64) float64 {
	return semantic
}

func (SemanticScorer) CandidateThreshold(threshold float64) float64 {
	return threshold
}

// HybridScorer blends embedding similarity with keyword overlap between
// the query and the chunk content. Candidates are collected at half the
// configured threshold so keyword-strong chunks with middling semantic
// similarity still surface.
type HybridScorer struct {
	SemanticWeight float64
	KeywordWeight  float64
}

// DefaultHybridScorer weights similarity over keyword overlap 70/30.
func DefaultHybridScorer() HybridScorer {
	return HybridScorer{SemanticWeight: 0.7, KeywordWeight: 0.3}
}

func (h HybridScorer) Score(query string, chunk *domain.KnowledgeChunk, semantic float64) float64 {
	return h.SemanticWeight*semantic + h.KeywordWeight*KeywordScore(query, chunk.Content)
}

func (h HybridScorer) CandidateThreshold(threshold float64) float64 {
	return threshold / 2
}

// KeywordScore measures token overlap between two texts as
// |intersection| / max(|a|, |b|) over lower-cased whitespace tokens.
func KeywordScore(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shared := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			shared++
		}
	}

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}
	return float64(shared) / float64(larger)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}
