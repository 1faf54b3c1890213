package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-registry/gateway/internal/config"
)

func TestLocalClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req localEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello"}, req.Input)

		json.NewEncoder(w).Encode(localEmbedResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{{Embedding: []float32{0.1, 0.2, 0.3}, Index: 0}},
		})
	}))
	defer server.Close()

	c := &localClient{baseURL: server.URL, model: "test-model", dimensions: 3, httpClient: server.Client()}
	vectors, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
}

func TestLocalClient_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(localEmbedResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{{Embedding: []float32{0.1, 0.2}, Index: 0}},
		})
	}))
	defer server.Close()

	c := &localClient{baseURL: server.URL, model: "test-model", dimensions: 3, httpClient: server.Client()}
	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorContains(t, err, "declared dimension")
}

func TestNewClient_SentenceTransformers(t *testing.T) {
	cfg := &config.Config{EmbeddingsProvider: config.ProviderSentenceTransformers, EmbeddingsModelDimensions: 384}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, 384, client.Dimensions())
}

func TestNewClient_LiteLLM_RequiresProviderPrefix(t *testing.T) {
	cfg := &config.Config{EmbeddingsProvider: config.ProviderLiteLLM, EmbeddingsModelName: "no-slash-here"}
	_, err := NewClient(cfg)
	assert.ErrorContains(t, err, "provider/model-id")
}

func TestNewClient_LiteLLM_Bedrock(t *testing.T) {
	cfg := &config.Config{
		EmbeddingsProvider:        config.ProviderLiteLLM,
		EmbeddingsModelName:       "bedrock/amazon.titan-embed-text-v2:0",
		EmbeddingsModelDimensions: 1024,
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	_, err = client.Embed(context.Background(), []string{"hi"})
	assert.ErrorContains(t, err, "AWS-signed")
}
