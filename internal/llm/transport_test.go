// File path: internal/llm/transport_test.go
package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/llm/providers"
)

type scriptedBackend struct {
	errs  []error
	reply string
	calls int
	last  providers.Request
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Generate(_ context.Context, req providers.Request) (string, error) {
	b.calls++
	b.last = req
	if b.calls <= len(b.errs) && b.errs[b.calls-1] != nil {
		return "", b.errs[b.calls-1]
	}
	return b.reply, nil
}

func rateLimited() error {
	return &providers.ProviderError{Provider: "scripted", StatusCode: 429, RateLimited: true, Err: errors.New("slow down")}
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestTransportRetriesRateLimitThenSucceeds(t *testing.T) {
	backend := &scriptedBackend{errs: []error{rateLimited(), rateLimited()}, reply: "SQL: SELECT 1"}
	rec := &sleepRecorder{}
	tr := NewTransport(backend, WithRetryPolicy(3, time.Second), WithSleep(rec.sleep))

	text, err := tr.Generate(context.Background(), "sys", "user", 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "SQL: SELECT 1" {
		t.Fatalf("unexpected text %q", text)
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", backend.calls)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("expected 2 backoff waits, got %v", rec.waits)
	}
	if rec.waits[0] != time.Second || rec.waits[1] != 2*time.Second {
		t.Fatalf("expected linear backoff, got %v", rec.waits)
	}
	if backend.last.Temperature != 0.1 || backend.last.System != "sys" || backend.last.MaxTokens != 2000 {
		t.Fatalf("request not forwarded: %+v", backend.last)
	}
}

func TestTransportGivesUpAfterThirdRateLimit(t *testing.T) {
	third := rateLimited()
	backend := &scriptedBackend{errs: []error{rateLimited(), rateLimited(), third, nil}}
	rec := &sleepRecorder{}
	tr := NewTransport(backend, WithSleep(rec.sleep))

	_, err := tr.Generate(context.Background(), "sys", "user", 0.4)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, third) {
		t.Fatalf("expected the third error, got %v", err)
	}
	if backend.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", backend.calls)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("expected 2 waits, got %v", rec.waits)
	}
	if rec.waits[0] != 5*time.Second || rec.waits[1] != 10*time.Second {
		t.Fatalf("expected default 5s base delay, got %v", rec.waits)
	}
}

func TestTransportDoesNotRetryOtherFailures(t *testing.T) {
	backend := &scriptedBackend{errs: []error{errors.New("unauthorized")}}
	rec := &sleepRecorder{}
	tr := NewTransport(backend, WithSleep(rec.sleep))

	_, err := tr.Generate(context.Background(), "sys", "user", 0.1)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Provider != "scripted" || perr.RateLimited {
		t.Fatalf("unexpected provider error: %+v", perr)
	}
	if backend.calls != 1 || len(rec.waits) != 0 {
		t.Fatalf("expected single attempt without waits, got %d calls %v", backend.calls, rec.waits)
	}
}

func TestTransportStopsWhenContextCancelled(t *testing.T) {
	backend := &scriptedBackend{errs: []error{rateLimited(), rateLimited()}, reply: "ok"}
	tr := NewTransport(backend, WithRetryPolicy(3, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Generate(ctx, "sys", "user", 0.1)
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error after cancellation, got %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("expected one attempt, got %d", backend.calls)
	}
}

func TestLoadConfigDefaultsPerProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_API_KEY", "gsk-test")
	t.Setenv("LLM_RETRY_DELAY", "250ms")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model != "llama-3.3-70b-versatile" || cfg.RetryDelay != 250*time.Millisecond || cfg.MaxAttempts != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Configured() {
		t.Fatalf("expected groq with key to be configured")
	}
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "watson")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}

func TestNewBackendRequiresKey(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Configured() {
		t.Fatalf("gemini without key must not be configured")
	}
	if _, err := NewBackend(cfg); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	ollama := DefaultConfig().Merge(Config{Provider: ProviderOllama})
	ollama.Model = ""
	ollama.applyDefaults()
	if !ollama.Configured() || ollama.Model != "llama3.1" {
		t.Fatalf("ollama should not need a key: %+v", ollama)
	}
}
