// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/llm/providers"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("llm: provider not configured")

type (
	Backend       = providers.Backend
	Request       = providers.Request
	ProviderError = providers.ProviderError
)

// IsRateLimited reports whether err is a rate-limit ProviderError.
func IsRateLimited(err error) bool {
	return providers.IsRateLimited(err)
}

// NewBackend picks the concrete backend for cfg.Provider. The choice is
// made once; callers hold on to the result.
func NewBackend(cfg Config) (Backend, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: %s needs an API key", ErrNotConfigured, cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return providers.NewOpenAI(providers.OpenAIConfig{
			Name:           ProviderOpenAI,
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.Timeout,
		}), nil
	case ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = providers.GroqBaseURL
		}
		return providers.NewOpenAI(providers.OpenAIConfig{
			Name:    ProviderGroq,
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case ProviderOllama:
		return providers.NewOllama(cfg.BaseURL, cfg.Model, cfg.Timeout)
	case ProviderGemini:
		return providers.NewGemini(context.Background(), cfg.APIKey, cfg.Model)
	}
	return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
}

// New builds the retrying transport for cfg.
func New(cfg Config) (*Transport, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("llm: provider selected", "provider", backend.Name(), "model", cfg.Model)
	return NewTransport(backend,
		WithRetryPolicy(cfg.MaxAttempts, cfg.RetryDelay),
		WithMaxTokens(cfg.MaxTokens),
	), nil
}

// NewEmbedder returns an OpenAI embeddings client when an OpenAI key is
// available (EMBEDDING_API_KEY falls back to OPENAI_API_KEY).
func NewEmbedder(cfg Config) (*providers.OpenAI, error) {
	if cfg.EmbeddingAPIKey == "" {
		return nil, fmt.Errorf("%w: embeddings need an OpenAI API key", ErrNotConfigured)
	}
	return providers.NewOpenAI(providers.OpenAIConfig{
		Name:           "openai-embeddings",
		APIKey:         cfg.EmbeddingAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.Timeout,
	}), nil
}
