// Package embeddings provides the pluggable embedding client of
// spec.md §4.2: two supported providers (local sentence-transformer-
// style, and a generic remote "provider/model-id" client), wire shape
// grounded on the teacher's internal/mcp/embeddings/voyage_client.go.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcp-registry/gateway/internal/config"
)

// Client embeds a batch of texts, returning one vector per input in
// the same order.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// NewClient builds the configured embedding client. The remote family
// accepts "provider/model-id" (e.g. "openai/text-embedding-3-small",
// "bedrock/amazon.titan-embed-text-v2:0", "cohere/embed-english-v3.0")
// per spec.md §4.2's "generic prefixed model client".
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.EmbeddingsProvider {
	case config.ProviderSentenceTransformers:
		return newLocalClient(cfg), nil
	case config.ProviderLiteLLM:
		return newRemoteClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embeddings_provider %q", cfg.EmbeddingsProvider)
	}
}

// localClient calls a locally-hosted sentence-transformer-style HTTP
// embedding server. Modeled as an HTTP client (same transport shape
// as voyage_client.go) rather than an in-process CGO binding — see
// DESIGN.md's Open Question decision on the dropped go-llama.cpp dep.
type localClient struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

func newLocalClient(cfg *config.Config) *localClient {
	baseURL := cfg.EmbeddingsAPIBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &localClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.EmbeddingsModelName,
		dimensions: cfg.EmbeddingsModelDimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *localClient) Dimensions() int { return c.dimensions }

type localEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type localEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *localClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	body, err := json.Marshal(localEmbedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling local embedding server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("local embedding server returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed localEmbedResponse
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

func validateDimensions(vectors [][]float32, declared int) error {
	for _, v := range vectors {
		if len(v) != declared {
			return fmt.Errorf("embedding provider returned %d-dimension vector, declared dimension is %d", len(v), declared)
		}
	}
	return nil
}
