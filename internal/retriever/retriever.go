// Package retriever ranks stored knowledge chunks against natural
// language queries and assembles bounded context windows from them.
package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jerry-assistant/ragcore/internal/domain"
	"github.com/jerry-assistant/ragcore/internal/embedding"
	"github.com/jerry-assistant/ragcore/internal/index"
	"github.com/jerry-assistant/ragcore/internal/telemetry"
)

// Encoder is the embedding dependency the retriever needs.
type Encoder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
}

// Config controls ranking and context assembly.
type Config struct {
	TopK                int
	SimilarityThreshold float64
	MaxContextLength    int
	QueryTimeout        time.Duration
}

// DefaultConfig returns the default retriever configuration.
func DefaultConfig() Config {
	return Config{
		TopK:                5,
		SimilarityThreshold: 0.7,
		MaxContextLength:    4000,
		QueryTimeout:        10 * time.Second,
	}
}

// Retriever answers queries from a vector index. Lookup failures
// degrade to empty results so callers always get a usable answer.
type Retriever struct {
	encoder Encoder
	index   index.Index
	scorer  Scorer
	cfg     Config
	logger  *slog.Logger
}

// New creates a retriever with the default configuration and pure
// semantic scoring.
func New(encoder Encoder, idx index.Index, logger *slog.Logger) *Retriever {
	return NewWithConfig(encoder, idx, SemanticScorer{}, DefaultConfig(), logger)
}

// NewWithConfig creates a retriever with explicit configuration.
func NewWithConfig(encoder Encoder, idx index.Index, scorer Scorer, cfg Config, logger *slog.Logger) *Retriever {
	defaults := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = defaults.MaxContextLength
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if scorer == nil {
		scorer = SemanticScorer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		encoder: encoder,
		index:   idx,
		scorer:  scorer,
		cfg:     cfg,
		logger:  logger,
	}
}

// Search returns up to TopK chunks ranked by descending relevance.
// A non-empty filter restricts candidates by metadata. Blank queries
// and provider or index failures yield an empty result.
func (r *Retriever) Search(ctx context.Context, query string, filter map[string]string) []*domain.KnowledgeChunk {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.KnowledgeChunk{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	vector, err := r.encoder.EncodeOne(ctx, query)
	if err != nil {
		r.logger.Error("query encoding failed", "op", "search", "query_hash", hashPrefix(query), "error", err)
		return []*domain.KnowledgeChunk{}
	}
	if embedding.IsZero(vector) {
		return []*domain.KnowledgeChunk{}
	}

	matches, err := r.index.Query(ctx, vector, 2*r.cfg.TopK, filter)
	if err != nil {
		r.logger.Error("index query failed", "op", "search", "query_hash", hashPrefix(query), "error", err)
		return []*domain.KnowledgeChunk{}
	}

	return r.rank(query, matches)
}

// SearchByDocument restricts the search to chunks of a single document.
func (r *Retriever) SearchByDocument(ctx context.Context, query, documentID string) []*domain.KnowledgeChunk {
	return r.Search(ctx, query, map[string]string{"document_id": documentID})
}

// rank filters candidates by threshold and orders them by descending
// combined score. The sort is stable, so ties keep index rank order.
func (r *Retriever) rank(query string, matches []index.Match) []*domain.KnowledgeChunk {
	candidateFloor := r.scorer.CandidateThreshold(r.cfg.SimilarityThreshold)

	ranked := make([]*domain.KnowledgeChunk, 0, len(matches))
	for _, match := range matches {
		semantic := index.Similarity(match.Distance)
		if semantic < candidateFloor {
			continue
		}
		score := r.scorer.Score(query, match.Chunk, semantic)
		if score < r.cfg.SimilarityThreshold {
			continue
		}
		if score > 1 {
			score = 1
		}
		match.Chunk.RelevanceScore = score
		ranked = append(ranked, match.Chunk)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if len(ranked) > r.cfg.TopK {
		ranked = ranked[:r.cfg.TopK]
	}
	return ranked
}

// GetContext assembles a context window for the query, one section per
// matching chunk with a "[Source: title]" header. The result never
// exceeds maxLength; zero or negative maxLength uses the configured
// default. The chunks used to build the window are returned alongside.
func (r *Retriever) GetContext(ctx context.Context, query string, maxLength int) (string, []*domain.KnowledgeChunk) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.GetContext", telemetry.SpanAttributes{
		Operation: "context",
	})
	defer span.End()

	if maxLength <= 0 {
		maxLength = r.cfg.MaxContextLength
	}

	chunks := r.Search(ctx, query, nil)
	if len(chunks) == 0 {
		return "", []*domain.KnowledgeChunk{}
	}

	var builder strings.Builder
	used := make([]*domain.KnowledgeChunk, 0, len(chunks))
	for _, chunk := range chunks {
		section := formatSection(chunk)
		if builder.Len() > 0 {
			section = "\n\n" + section
		}

		if builder.Len()+len(section) > maxLength-contextHeadroom {
			remaining := maxLength - builder.Len()
			if remaining > contextTruncateMin {
				// Back off to a rune boundary so the tail stays valid UTF-8.
				cut := remaining - 3
				for cut > 0 && !utf8.RuneStart(section[cut]) {
					cut--
				}
				builder.WriteString(section[:cut])
				builder.WriteString("...")
				used = append(used, chunk)
			}
			break
		}

		builder.WriteString(section)
		used = append(used, chunk)
	}

	return builder.String(), used
}

const (
	// contextHeadroom keeps assembled windows comfortably under the
	// limit so a downstream prompt wrapper never overflows it.
	contextHeadroom = 50

	// contextTruncateMin is the smallest tail worth keeping. Anything
	// shorter is dropped rather than truncated.
	contextTruncateMin = 100
)

func formatSection(chunk *domain.KnowledgeChunk) string {
	title := chunk.Title
	if title == "" {
		title = chunk.DocumentID
	}
	return "[Source: " + title + "]\n" + chunk.Content
}

// FindSimilar returns up to limit chunks nearest to the reference
// chunk, excluding the reference itself. When excludeSameDocument is
// set, chunks of the reference's document are skipped too; candidates
// are over-fetched to compensate.
func (r *Retriever) FindSimilar(ctx context.Context, chunkID string, limit int, excludeSameDocument bool) []*domain.KnowledgeChunk {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.FindSimilar", telemetry.SpanAttributes{
		Operation: "similar",
	})
	defer span.End()

	if limit <= 0 {
		limit = r.cfg.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	reference, err := r.index.Get(ctx, chunkID)
	if err != nil {
		r.logger.Error("reference lookup failed", "op", "similar", "chunk_id", chunkID, "error", err)
		return []*domain.KnowledgeChunk{}
	}

	vector := reference.Embedding
	if embedding.IsZero(vector) {
		vector, err = r.encoder.EncodeOne(ctx, reference.Content)
		if err != nil || embedding.IsZero(vector) {
			r.logger.Error("reference encoding failed", "op", "similar", "chunk_id", chunkID, "error", err)
			return []*domain.KnowledgeChunk{}
		}
	}

	fetch := limit + 1
	if excludeSameDocument {
		fetch = 2*limit + 1
	}

	matches, err := r.index.Query(ctx, vector, fetch, nil)
	if err != nil {
		r.logger.Error("index query failed", "op", "similar", "chunk_id", chunkID, "error", err)
		return []*domain.KnowledgeChunk{}
	}

	similar := make([]*domain.KnowledgeChunk, 0, limit)
	for _, match := range matches {
		if match.Chunk.ID == reference.ID {
			continue
		}
		if excludeSameDocument && match.Chunk.DocumentID == reference.DocumentID {
			continue
		}
		match.Chunk.RelevanceScore = index.Similarity(match.Distance)
		similar = append(similar, match.Chunk)
		if len(similar) == limit {
			break
		}
	}
	return similar
}

func hashPrefix(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:4])
}
