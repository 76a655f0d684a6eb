// File path: internal/llm/transport.go
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/common/telemetry"
	"github.com/nicodishanthj/Katral_insight/internal/llm/providers"
)

// Transport wraps one backend with the retry policy: only rate-limit
// failures are retried, after waiting baseDelay*attempt.
type Transport struct {
	backend     Backend
	maxAttempts int
	baseDelay   time.Duration
	maxTokens   int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

type TransportOption func(*Transport)

func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) TransportOption {
	return func(t *Transport) {
		if maxAttempts > 0 {
			t.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			t.baseDelay = baseDelay
		}
	}
}

func WithMaxTokens(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxTokens = n
		}
	}
}

// WithSleep replaces the backoff wait. Tests use it to observe delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) TransportOption {
	return func(t *Transport) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTransport(backend Backend, opts ...TransportOption) *Transport {
	t := &Transport{
		backend:     backend,
		maxAttempts: 3,
		baseDelay:   5 * time.Second,
		maxTokens:   2000,
		sleep:       sleepContext,
		logger:      common.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Name reports the backend serving this transport.
func (t *Transport) Name() string {
	return t.backend.Name()
}

// Generate runs one system + user exchange. Every returned error is a
// *ProviderError; after the last attempt the last error is returned.
func (t *Transport) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	req := providers.Request{
		System:      systemPrompt,
		User:        userPrompt,
		Temperature: temperature,
		MaxTokens:   t.maxTokens,
	}
	name := t.backend.Name()
	var lastErr *ProviderError
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		start := time.Now()
		text, err := t.backend.Generate(ctx, req)
		telemetry.RecordGeneration(name, time.Since(start), err)
		if err == nil {
			return text, nil
		}
		lastErr = providers.AsProviderError(name, err)
		if !lastErr.RateLimited {
			t.logger.Error("llm: generation failed", "provider", name, "attempt", attempt, "error", err)
			return "", lastErr
		}
		if attempt == t.maxAttempts {
			break
		}
		delay := t.baseDelay * time.Duration(attempt)
		t.logger.Warn("llm: rate limited, backing off",
			"provider", name,
			"attempt", attempt,
			"max_attempts", t.maxAttempts,
			"delay", delay,
		)
		telemetry.RecordGenerationRetry(name)
		if err := t.sleep(ctx, delay); err != nil {
			return "", lastErr
		}
	}
	t.logger.Error("llm: retries exhausted", "provider", name, "attempts", t.maxAttempts, "error", lastErr)
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
