// File path: internal/llm/providers/ollama.go
package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

const DefaultOllamaURL = "http://localhost:11434"

// Ollama talks to a local Ollama server through langchaingo.
type Ollama struct {
	llm   contentGenerator
	model string
}

func NewOllama(serverURL, model string, timeout time.Duration) (*Ollama, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
		ollama.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	common.Logger().Info("llm: ollama backend configured", "url", serverURL, "model", model)
	return &Ollama{llm: llm, model: model}, nil
}

func (o *Ollama) Name() string {
	return "ollama"
}

func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	text, err := generateText(ctx, o.llm, req)
	if err != nil {
		return "", classify(o.Name(), err)
	}
	return text, nil
}
