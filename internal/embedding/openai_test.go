package embedding

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	calls     int
	failBatch bool
	failTexts map[string]bool
	dim       int
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	req, ok := conv.(openai.EmbeddingRequest)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected request type")
	}
	texts, ok := req.Input.([]string)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected input type")
	}

	if f.failBatch && len(texts) > 1 {
		return openai.EmbeddingResponse{}, errors.New("batch rejected")
	}

	resp := openai.EmbeddingResponse{}
	for i, text := range texts {
		if f.failTexts[text] {
			return openai.EmbeddingResponse{}, errors.New("item rejected")
		}
		vec := make([]float32, f.dim)
		vec[0] = float32(len(text))
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: vec})
	}
	return resp, nil
}

func TestOpenAIProviderEncodeOne(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 8}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	vec, err := p.EncodeOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, float32(5), vec[0])
	assert.Equal(t, 1, api.calls)
}

func TestOpenAIProviderEncodeOneBlankSkipsAPI(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 8}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	vec, err := p.EncodeOne(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, IsZero(vec))
	assert.Zero(t, api.calls)
}

func TestOpenAIProviderWrongDimensions(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 4}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	_, err := p.EncodeOne(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestOpenAIProviderEncodeManyPreservesOrder(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 8}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	vectors, err := p.EncodeMany(context.Background(), []string{"aa", "", "cccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Equal(t, float32(2), vectors[0][0])
	assert.True(t, IsZero(vectors[1]), "blank item must be a zero vector")
	assert.Equal(t, float32(4), vectors[2][0])
	assert.Equal(t, 1, api.calls, "non-blank items share one batch call")
}

func TestOpenAIProviderEncodeManyIsolatesFailures(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 8, failBatch: true, failTexts: map[string]bool{"bad": true}}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	vectors, err := p.EncodeMany(context.Background(), []string{"good", "bad", "fine"})
	require.NoError(t, err, "batch encode never aborts on item failure")
	require.Len(t, vectors, 3)

	assert.Equal(t, float32(4), vectors[0][0])
	assert.True(t, IsZero(vectors[1]), "failed item must be a zero vector")
	assert.Equal(t, float32(4), vectors[2][0])
}

func TestOpenAIProviderEncodeManyEmptyInput(t *testing.T) {
	api := &fakeEmbeddingAPI{dim: 8}
	p := NewOpenAIProviderWithAPI(api, DefaultOpenAIModel, 8)

	vectors, err := p.EncodeMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, api.calls)
}
