package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIModel is the OpenAI model used for generating embeddings
	DefaultOpenAIModel = openai.SmallEmbedding3
	// DefaultOpenAIDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultOpenAIDimensions = 1536
	// DefaultRequestTimeout bounds a single embeddings API call
	DefaultRequestTimeout = 30 * time.Second
)

var (
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoEmbeddingData is returned when the API responds without embedding data
	ErrNoEmbeddingData = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the narrow slice of the OpenAI client used here.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey         string
	Model          openai.EmbeddingModel
	Dimensions     int
	RequestTimeout time.Duration
}

// OpenAIProvider generates embeddings through the OpenAI embeddings API.
type OpenAIProvider struct {
	api     EmbeddingAPI
	model   openai.EmbeddingModel
	dim     int
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIProvider creates a provider using defaults for model and dimensions.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(OpenAIConfig{APIKey: apiKey})
}

// NewOpenAIProviderWithConfig creates a provider with explicit configuration.
func NewOpenAIProviderWithConfig(cfg OpenAIConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dim := cfg.Dimensions
	if dim <= 0 {
		dim = DefaultOpenAIDimensions
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &OpenAIProvider{
		api:     openai.NewClient(cfg.APIKey),
		model:   model,
		dim:     dim,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// NewOpenAIProviderWithAPI creates a provider around an existing API client.
// Used by tests to substitute a fake transport.
func NewOpenAIProviderWithAPI(api EmbeddingAPI, model openai.EmbeddingModel, dimensions int) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimensions <= 0 {
		dimensions = DefaultOpenAIDimensions
	}
	return &OpenAIProvider{
		api:     api,
		model:   model,
		dim:     dimensions,
		timeout: DefaultRequestTimeout,
		logger:  slog.Default(),
	}
}

// Dimension returns the configured vector dimension.
func (p *OpenAIProvider) Dimension() int {
	return p.dim
}

// EncodeOne embeds a single text. Blank text yields a zero vector without
// an API round trip.
func (p *OpenAIProvider) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return ZeroVector(p.dim), nil
	}

	vectors, err := p.createEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddingData
	}
	return vectors[0], nil
}

// EncodeMany embeds texts in a single batched API call, preserving order.
// Blank items are zero vectors. If the batch call fails, each item is
// retried individually and failed items are substituted with zero vectors
// so one bad input never poisons the rest.
func (p *OpenAIProvider) EncodeMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	result := make([][]float32, len(texts))
	nonBlank := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			result[i] = ZeroVector(p.dim)
			continue
		}
		nonBlank = append(nonBlank, text)
		positions = append(positions, i)
	}

	if len(nonBlank) == 0 {
		return result, nil
	}

	vectors, err := p.createEmbeddings(ctx, nonBlank)
	if err == nil && len(vectors) == len(nonBlank) {
		for i, vec := range vectors {
			result[positions[i]] = vec
		}
		return result, nil
	}

	if err != nil {
		p.logger.Warn("batch embedding failed, retrying items individually", "error", err, "items", len(nonBlank))
	}

	for i, text := range nonBlank {
		vec, itemErr := p.EncodeOne(ctx, text)
		if itemErr != nil {
			p.logger.Warn("item embedding failed, substituting zero vector", "error", itemErr)
			vec = ZeroVector(p.dim)
		}
		result[positions[i]] = vec
	}
	return result, nil
}

func (p *OpenAIProvider) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, ErrNoEmbeddingData
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		if len(item.Embedding) != p.dim {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, p.dim, len(item.Embedding))
		}
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
