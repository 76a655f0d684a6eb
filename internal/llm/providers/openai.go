// File path: internal/llm/providers/openai.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// OpenAIConfig configures an OpenAI-compatible backend. Name distinguishes
// "openai" from "groq" in logs and errors.
type OpenAIConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// OpenAI serves chat completions and embeddings through openai-go. SDK
// retries are disabled; the transport owns the retry policy.
type OpenAI struct {
	client     openai.Client
	name       string
	model      string
	embedModel string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	common.Logger().Info("llm: openai-compatible backend configured",
		"provider", name,
		"model", cfg.Model,
		"embed_model", cfg.EmbeddingModel,
		"custom_endpoint", cfg.BaseURL != "",
	)
	return &OpenAI{
		client:     openai.NewClient(opts...),
		name:       name,
		model:      cfg.Model,
		embedModel: cfg.EmbeddingModel,
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", o.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: o.name, Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns one vector per input text.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, o.wrap(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{Provider: o.name, Err: fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))}
	}
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, &ProviderError{Provider: o.name, Err: fmt.Errorf("embedding index %d out of range", idx)}
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		if vectors[idx] != nil {
			return nil, &ProviderError{Provider: o.name, Err: fmt.Errorf("duplicate embedding index %d", idx)}
		}
		vectors[idx] = vec
	}
	return vectors, nil
}

func (o *OpenAI) wrap(err error) *ProviderError {
	perr := &ProviderError{Provider: o.name, Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.StatusCode
		perr.RateLimited = apiErr.StatusCode == http.StatusTooManyRequests
	}
	return perr
}
