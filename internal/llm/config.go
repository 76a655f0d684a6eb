// File path: internal/llm/config.go
package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGroq:   "llama-3.3-70b-versatile",
	ProviderOllama: "llama3.1",
	ProviderGemini: "gemini-1.5-flash",
}

type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`

	MaxAttempts   int           `json:"max_attempts"`
	RetryDelay    time.Duration `json:"-"`
	RetryDelayStr string        `json:"retry_delay"`
	Timeout       time.Duration `json:"-"`
	TimeoutStr    string        `json:"timeout"`
	MaxTokens     int           `json:"max_tokens"`

	EmbeddingModel  string `json:"embedding_model"`
	EmbeddingAPIKey string `json:"embedding_api_key"`
}

// DefaultConfig mirrors the shipped defaults: Gemini, three attempts, five
// second base backoff.
func DefaultConfig() Config {
	cfg := Config{Provider: ProviderGemini}
	cfg.applyDefaults()
	return cfg
}

func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.Provider); v != "" {
		result.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(override.APIKey); v != "" {
		result.APIKey = v
	}
	if v := strings.TrimSpace(override.Model); v != "" {
		result.Model = v
	}
	if v := strings.TrimSpace(override.BaseURL); v != "" {
		result.BaseURL = v
	}
	if override.MaxAttempts > 0 {
		result.MaxAttempts = override.MaxAttempts
	}
	if override.RetryDelay > 0 {
		result.RetryDelay = override.RetryDelay
	}
	if v := strings.TrimSpace(override.RetryDelayStr); v != "" {
		result.RetryDelayStr = v
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if v := strings.TrimSpace(override.TimeoutStr); v != "" {
		result.TimeoutStr = v
	}
	if override.MaxTokens > 0 {
		result.MaxTokens = override.MaxTokens
	}
	if v := strings.TrimSpace(override.EmbeddingModel); v != "" {
		result.EmbeddingModel = v
	}
	if v := strings.TrimSpace(override.EmbeddingAPIKey); v != "" {
		result.EmbeddingAPIKey = v
	}
	return result
}

// LoadConfig reads LLM_CONFIG_FILE (JSON) and then LLM_* variables.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("LLM_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read llm config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse llm config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{
		Provider:        strings.TrimSpace(os.Getenv("LLM_PROVIDER")),
		APIKey:          strings.TrimSpace(os.Getenv("LLM_API_KEY")),
		Model:           strings.TrimSpace(os.Getenv("LLM_MODEL")),
		BaseURL:         strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
		RetryDelayStr:   strings.TrimSpace(os.Getenv("LLM_RETRY_DELAY")),
		TimeoutStr:      strings.TrimSpace(os.Getenv("LLM_TIMEOUT")),
		EmbeddingModel:  strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")),
		EmbeddingAPIKey: strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")),
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if strings.EqualFold(cfg.Provider, ProviderOllama) && cfg.BaseURL == "" {
		cfg.BaseURL = strings.TrimSpace(os.Getenv("OLLAMA_URL"))
	}
	for key, target := range map[string]*int{
		"LLM_MAX_ATTEMPTS": &cfg.MaxAttempts,
		"LLM_MAX_TOKENS":   &cfg.MaxTokens,
	} {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", key, err)
		}
		*target = value
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.APIKey == "not_needed" {
		c.APIKey = ""
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	c.RetryDelay = resolveDuration(c.RetryDelay, c.RetryDelayStr, 5*time.Second)
	c.Timeout = resolveDuration(c.Timeout, c.TimeoutStr, 60*time.Second)
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.EmbeddingAPIKey == "" && c.Provider == ProviderOpenAI {
		c.EmbeddingAPIKey = c.APIKey
	}
}

func (c Config) validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("llm: unsupported provider %q", c.Provider)
	}
	return nil
}

// Configured reports whether a hosted model can be called: Ollama needs no
// key, every other provider does.
func (c Config) Configured() bool {
	return c.Provider == ProviderOllama || c.APIKey != ""
}

func resolveDuration(current time.Duration, raw string, fallback time.Duration) time.Duration {
	if current > 0 {
		return current
	}
	if raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
