package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mcp-registry/gateway/internal/config"
)

// remoteClient dispatches to an OpenAI/Bedrock/Cohere-family endpoint
// by a "provider/model-id" specifier (spec.md §4.2). openai and cohere
// read EmbeddingsAPIKey. bedrock/... is accepted here, but Embed always
// fails for it: no AWS credentials are looked up and no request is sent.
type remoteClient struct {
	provider   string
	model      string
	dimensions int
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func newRemoteClient(cfg *config.Config) (*remoteClient, error) {
	provider, model, ok := strings.Cut(cfg.EmbeddingsModelName, "/")
	if !ok {
		return nil, fmt.Errorf("embeddings_model_name must be \"provider/model-id\" for litellm provider, got %q", cfg.EmbeddingsModelName)
	}

	c := &remoteClient{
		provider:   provider,
		model:      model,
		dimensions: cfg.EmbeddingsModelDimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.EmbeddingsAPIKey,
		baseURL:    cfg.EmbeddingsAPIBaseURL,
	}

	switch provider {
	case "openai":
		if c.baseURL == "" {
			c.baseURL = "https://api.openai.com/v1"
		}
		if c.apiKey == "" {
			c.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	case "cohere":
		if c.baseURL == "" {
			c.baseURL = "https://api.cohere.ai/v1"
		}
		if c.apiKey == "" {
			c.apiKey = os.Getenv("COHERE_API_KEY")
		}
	case "bedrock":
		// No API key is read; embedBedrock always returns an error.
	default:
		return nil, fmt.Errorf("unsupported remote embeddings provider %q", provider)
	}

	return c, nil
}

func (c *remoteClient) Dimensions() int { return c.dimensions }

func (c *remoteClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	switch c.provider {
	case "bedrock":
		return c.embedBedrock(ctx, texts)
	default:
		return c.embedOpenAICompatible(ctx, texts)
	}
}

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// embedOpenAICompatible covers both "openai" and "cohere": both pack
// repos' remote embedding clients (voyage_client.go, and the shape
// Cohere/OpenAI-compatible gateways expose) use the same
// input/model/data[].embedding envelope.
func (c *remoteClient) embedOpenAICompatible(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s embedding endpoint: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s embedding endpoint returned %d: %s", c.provider, resp.StatusCode, string(data))
	}

	var parsed openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, validateDimensions(out, c.dimensions)
}

// embedBedrock always returns an error: this package has no AWS request
// signing, and nothing else supplies a signed client, so no Bedrock
// invoke-model call is made.
func (c *remoteClient) embedBedrock(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("bedrock embeddings require an AWS-signed client; not wired in this deployment")
}
