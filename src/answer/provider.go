package answer

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	// DefaultBaseURL is the OpenAI-compatible Hugging Face inference router.
	DefaultBaseURL = "https://router.huggingface.co/v1"
	DefaultModel   = "mistralai/Mixtral-8x7B-Instruct-v0.1"
)

// ProviderConfig selects the hosted chat model.
type ProviderConfig struct {
	Provider   string
	BaseURL    string
	Token      string
	Model      string
	HTTPClient *http.Client
}

// NewGenerator builds the chat model client described by cfg.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultBaseURL
		}
		opts := []openai.Option{
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.Token),
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, ollama.WithHTTPClient(cfg.HTTPClient))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
