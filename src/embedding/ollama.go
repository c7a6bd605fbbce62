// Package embedding produces text embeddings through an Ollama server.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"pdfqa/src/log"
)

const (
	DefaultURL       = "http://localhost:11434"
	DefaultModel     = "all-minilm"
	DefaultBatchSize = 16
)

var ErrCountMismatch = errors.New("embedding count does not match input count")

// OllamaEmbedder embeds text with one fixed model, so chunk and query vectors share a space.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	batchSize int
}

// NewOllamaEmbedder creates an embedder talking to the Ollama server at baseURL.
func NewOllamaEmbedder(baseURL, model string, batchSize int, httpClient *http.Client) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	return &OllamaEmbedder{
		client:    api.NewClient(u, httpClient),
		model:     model,
		batchSize: batchSize,
	}, nil
}

// Model returns the embedding model name.
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// EmbedBatch embeds texts in sub-batches of the configured size. The i-th
// vector always belongs to texts[i].
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		vectors, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Embed embeds a single query string.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		log.Error(err, "failed to make embed request to ollama", "model", e.model, "inputs", len(texts))
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Heartbeat checks that the Ollama server is reachable.
func (e *OllamaEmbedder) Heartbeat(ctx context.Context) error {
	return e.client.Heartbeat(ctx)
}
