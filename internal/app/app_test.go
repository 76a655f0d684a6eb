// File path: internal/app/app_test.go
package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/llm"
	"github.com/nicodishanthj/Katral_insight/internal/sqlite"
	"github.com/nicodishanthj/Katral_insight/internal/vector"
)

type fakeTransport struct {
	calls int
}

func (f *fakeTransport) Generate(_ context.Context, system, _ string, _ float64) (string, error) {
	f.calls++
	if strings.Contains(system, "SQL expert") {
		return "REFINED: Total completed sales\nSQL: SELECT SUM(amount) AS total_sales FROM sales WHERE status = 'COMPLETED'", nil
	}
	return "Completed sales are healthy.", nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"INSIGHT_CONFIG_FILE", "TOP_K_RESULTS", "KNOWLEDGE_FILE", "ENVIRONMENT", "RETRIEVAL_CACHE_SIZE"} {
		t.Setenv(key, "")
	}
}

func testOptions(t *testing.T, extra ...Option) []Option {
	t.Helper()
	dir := t.TempDir()
	sqliteCfg := sqlite.DefaultConfig()
	sqliteCfg.Path = filepath.Join(dir, "warehouse.db")
	opts := []Option{
		WithSQLiteConfig(sqliteCfg),
		WithLLMConfig(llm.Config{Provider: llm.ProviderGemini, Model: "gemini-1.5-flash"}),
		WithVectorConfig(vector.Config{}),
		WithHistoryConfig(history.Config{Backend: history.BackendSQLite}),
	}
	return append(opts, extra...)
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("LoadConfig defaults mismatch: %#v", cfg)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TOP_K_RESULTS", "8")
	t.Setenv("KNOWLEDGE_FILE", "/tmp/knowledge.yaml")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TopK != 8 {
		t.Errorf("TopK = %d", cfg.TopK)
	}
	if cfg.KnowledgeFile != "/tmp/knowledge.yaml" {
		t.Errorf("KnowledgeFile = %q", cfg.KnowledgeFile)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q", cfg.Environment)
	}

	t.Setenv("TOP_K_RESULTS", "many")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for non-numeric TOP_K_RESULTS")
	}
	t.Setenv("TOP_K_RESULTS", "500")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for oversized TOP_K_RESULTS")
	}
}

func TestNewFallsBackToPatternsWithoutModel(t *testing.T) {
	a, err := New(context.Background(), Config{Seed: true}, testOptions(t)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	health := a.Health()
	if health.LLMConfigured {
		t.Fatalf("expected unconfigured model")
	}
	if health.Retrieval != RetrievalLexical {
		t.Fatalf("Retrieval = %q", health.Retrieval)
	}
	if a.History() == nil {
		t.Fatalf("expected sqlite history")
	}

	result, err := a.Pipeline().Process(context.Background(), "What is the total sales?", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(result.FinalAnswer, "The result is: ") {
		t.Fatalf("FinalAnswer = %q", result.FinalAnswer)
	}
	sessions, err := a.History().Sessions(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != result.ConversationID {
		t.Fatalf("sessions = %#v", sessions)
	}
}

func TestNewUsesInjectedTransport(t *testing.T) {
	transport := &fakeTransport{}
	a, err := New(context.Background(), Config{Seed: true}, testOptions(t,
		WithTransport(transport),
		WithHistoryConfig(history.Config{Backend: history.BackendNone}),
	)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if !a.Health().LLMConfigured {
		t.Fatalf("expected configured model")
	}
	if a.History() != nil {
		t.Fatalf("history should be disabled")
	}
	result, err := a.Pipeline().Process(context.Background(), "total sales please", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.FinalAnswer != "Completed sales are healthy." {
		t.Fatalf("FinalAnswer = %q", result.FinalAnswer)
	}
	if transport.calls != 2 {
		t.Fatalf("transport calls = %d", transport.calls)
	}

	apiServer, err := a.APIServer()
	if err != nil || apiServer == nil {
		t.Fatalf("APIServer: %v", err)
	}
	mcp, err := a.MCPServer()
	if err != nil || mcp == nil {
		t.Fatalf("MCPServer: %v", err)
	}
}

func TestNewKeepsLexicalIndexWithoutEmbeddings(t *testing.T) {
	a, err := New(context.Background(), Config{}, testOptions(t,
		WithVectorConfig(vector.Config{Enabled: true, Host: "127.0.0.1", Port: "1", Scheme: "http"}),
	)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if got := a.Health().Retrieval; got != RetrievalLexical {
		t.Fatalf("Retrieval = %q", got)
	}
}

func TestNewKeepsLexicalIndexWhenChromaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	parsed, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, port, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}

	a, err := New(context.Background(), Config{}, testOptions(t,
		WithVectorConfig(vector.Config{Enabled: true, Host: host, Port: port, Scheme: "http"}),
		WithEmbedder(fakeEmbedder{}),
	)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if got := a.Health().Retrieval; got != RetrievalLexical {
		t.Fatalf("Retrieval = %q", got)
	}
}

func TestNewRejectsMissingKnowledgeFile(t *testing.T) {
	_, err := New(context.Background(), Config{KnowledgeFile: filepath.Join(t.TempDir(), "missing.yaml")}, testOptions(t)...)
	if err == nil {
		t.Fatalf("expected error for missing knowledge file")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), Config{}, testOptions(t)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	var nilApp *App
	if err := nilApp.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
