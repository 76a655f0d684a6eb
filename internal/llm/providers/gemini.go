// File path: internal/llm/providers/gemini.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

// contentGenerator is the part of llms.Model the chat backends call.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Gemini calls Google AI Studio through langchaingo's googleai client.
type Gemini struct {
	llm   contentGenerator
	model string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key required")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	common.Logger().Info("llm: gemini backend configured", "model", model)
	return newGemini(llm, model), nil
}

func newGemini(llm contentGenerator, model string) *Gemini {
	return &Gemini{llm: llm, model: model}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	text, err := generateText(ctx, g.llm, req, llms.WithModel(g.model))
	if err != nil {
		return "", classify(g.Name(), err)
	}
	return text, nil
}

// generateText sends one system + user exchange and joins the first
// non-empty choice.
func generateText(ctx context.Context, llm contentGenerator, req Request, extra ...llms.CallOption) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))
	opts := append([]llms.CallOption{llms.WithTemperature(req.Temperature)}, extra...)
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	resp, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if resp != nil {
		for _, choice := range resp.Choices {
			if choice != nil && choice.Content != "" {
				return choice.Content, nil
			}
		}
	}
	return "", errors.New("no choices returned")
}

// classify wraps a client error, marking rate limiting reported through the
// error text.
func classify(provider string, err error) *ProviderError {
	perr := AsProviderError(provider, err)
	if rateLimitMessage(err) {
		perr.StatusCode = http.StatusTooManyRequests
		perr.RateLimited = true
	}
	return perr
}
