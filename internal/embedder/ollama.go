package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OllamaEmbedder calls a local Ollama server's /api/embed endpoint.
// Safe for concurrent use; no credentials are involved.
type OllamaEmbedder struct {
	cfg    OllamaConfig
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
// Local models can be slow to load on first use, so the timeout is generous.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		cfg:    *cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed returns one embedding per input text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: e.cfg.Model, Input: texts}

	req, err := newJSONRequest(ctx, e.cfg.Host+"/api/embed", reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}

	var respBody struct {
		Embeddings [][]float32 `json:"embeddings"`
		Error      string      `json:"error,omitempty"`
	}
	if err := doJSON(e.client, req, &respBody); err != nil {
		if respBody.Error != "" {
			return nil, fmt.Errorf("ollama embedder: %s", respBody.Error)
		}
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}

	if len(respBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embedder: got %d embeddings for %d inputs", len(respBody.Embeddings), len(texts))
	}
	return respBody.Embeddings, nil
}
