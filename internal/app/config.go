// File path: internal/app/config.go
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config controls the composition root. Component specific settings live in
// their own packages and are loaded from the environment unless an Option
// supplies them.
type Config struct {
	TopK          int    `json:"top_k"`
	KnowledgeFile string `json:"knowledge_file"`
	Environment   string `json:"environment"`
	CacheSize     int    `json:"cache_size"`
	Seed          bool   `json:"seed"`
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		TopK:        5,
		Environment: "development",
		CacheSize:   256,
	}
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.TopK > 0 {
		result.TopK = override.TopK
	}
	if v := strings.TrimSpace(override.KnowledgeFile); v != "" {
		result.KnowledgeFile = v
	}
	if v := strings.TrimSpace(override.Environment); v != "" {
		result.Environment = v
	}
	if override.CacheSize > 0 {
		result.CacheSize = override.CacheSize
	}
	if override.Seed {
		result.Seed = true
	}
	return result
}

// LoadConfig builds a Config from defaults, INSIGHT_CONFIG_FILE and
// environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("INSIGHT_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read insight config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse insight config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	if value := strings.TrimSpace(os.Getenv("TOP_K_RESULTS")); value != "" {
		topK, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse TOP_K_RESULTS: %w", err)
		}
		cfg.TopK = topK
	}
	if value := strings.TrimSpace(os.Getenv("KNOWLEDGE_FILE")); value != "" {
		cfg.KnowledgeFile = value
	}
	if value := strings.TrimSpace(os.Getenv("ENVIRONMENT")); value != "" {
		cfg.Environment = value
	}
	if value := strings.TrimSpace(os.Getenv("RETRIEVAL_CACHE_SIZE")); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse RETRIEVAL_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = size
	}
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = defaults.Environment
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	return cfg
}

func (c Config) validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive")
	}
	if c.TopK > 50 {
		return fmt.Errorf("top k %d exceeds 50", c.TopK)
	}
	return nil
}
