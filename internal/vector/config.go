// File path: internal/vector/config.go
package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config describes how to reach ChromaDB. While Enabled is false retrieval
// stays on the in-memory index.
type Config struct {
	Enabled          bool   `json:"enabled"`
	Host             string `json:"host"`
	Port             string `json:"port"`
	Scheme           string `json:"scheme"`
	CollectionPrefix string `json:"collection_prefix"`
	APIKey           string `json:"api_key"`

	Timeout       time.Duration `json:"-"`
	TimeoutString string        `json:"timeout"`

	HTTPMaxIdleConns       int           `json:"http_max_idle_conns"`
	HTTPMaxIdlePerHost     int           `json:"http_max_idle_per_host"`
	HTTPIdleConnTimeout    time.Duration `json:"-"`
	HTTPIdleConnTimeoutStr string        `json:"http_idle_conn_timeout"`
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.Enabled {
		result.Enabled = true
	}
	if v := strings.TrimSpace(override.Host); v != "" {
		result.Host = v
	}
	if v := strings.TrimSpace(override.Port); v != "" {
		result.Port = v
	}
	if v := strings.TrimSpace(override.Scheme); v != "" {
		result.Scheme = v
	}
	if v := strings.TrimSpace(override.CollectionPrefix); v != "" {
		result.CollectionPrefix = v
	}
	if v := strings.TrimSpace(override.APIKey); v != "" {
		result.APIKey = v
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if v := strings.TrimSpace(override.TimeoutString); v != "" {
		result.TimeoutString = v
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPMaxIdlePerHost > 0 {
		result.HTTPMaxIdlePerHost = override.HTTPMaxIdlePerHost
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	if v := strings.TrimSpace(override.HTTPIdleConnTimeoutStr); v != "" {
		result.HTTPIdleConnTimeoutStr = v
	}
	return result
}

// BaseURL is the v1 REST root for the configured server.
func (c Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%s/api/v1", c.Scheme, c.Host, c.Port)
}

// LoadConfig reads CHROMADB_CONFIG_FILE (JSON) and then CHROMADB_* variables.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("CHROMADB_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "localhost"
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "8000"
	}
	if strings.TrimSpace(c.Scheme) == "" {
		c.Scheme = "http"
	}
	if strings.TrimSpace(c.CollectionPrefix) == "" {
		c.CollectionPrefix = "insight"
	}
	c.Timeout = resolveDuration(c.Timeout, c.TimeoutString, 10*time.Second)
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = 32
	}
	if c.HTTPMaxIdlePerHost <= 0 {
		c.HTTPMaxIdlePerHost = 8
	}
	c.HTTPIdleConnTimeout = resolveDuration(c.HTTPIdleConnTimeout, c.HTTPIdleConnTimeoutStr, 90*time.Second)
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

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read chromadb config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse chromadb config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{
		Host:                   strings.TrimSpace(os.Getenv("CHROMADB_HOST")),
		Port:                   strings.TrimSpace(os.Getenv("CHROMADB_PORT")),
		Scheme:                 strings.TrimSpace(os.Getenv("CHROMADB_SCHEME")),
		CollectionPrefix:       strings.TrimSpace(os.Getenv("CHROMADB_COLLECTION_PREFIX")),
		APIKey:                 strings.TrimSpace(os.Getenv("CHROMADB_API_KEY")),
		TimeoutString:          strings.TrimSpace(os.Getenv("CHROMADB_TIMEOUT")),
		HTTPIdleConnTimeoutStr: strings.TrimSpace(os.Getenv("CHROMADB_HTTP_IDLE_CONN_TIMEOUT")),
	}
	if raw := strings.TrimSpace(os.Getenv("CHROMADB_ENABLED")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHROMADB_ENABLED: %w", err)
		}
		cfg.Enabled = enabled
	}
	for key, target := range map[string]*int{
		"CHROMADB_HTTP_MAX_IDLE_CONNS":    &cfg.HTTPMaxIdleConns,
		"CHROMADB_HTTP_MAX_IDLE_PER_HOST": &cfg.HTTPMaxIdlePerHost,
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
