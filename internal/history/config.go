// File path: internal/history/config.go
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendNone   = "none"
)

type Config struct {
	Backend string `json:"backend"`
	Dir     string `json:"dir"`

	RedisAddr      string `json:"redis_addr"`
	RedisPassword  string `json:"redis_password"`
	RedisDB        int    `json:"redis_db"`
	RedisKeyPrefix string `json:"redis_key_prefix"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.Backend); v != "" {
		result.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(override.Dir); v != "" {
		result.Dir = v
	}
	if v := strings.TrimSpace(override.RedisAddr); v != "" {
		result.RedisAddr = v
	}
	if override.RedisPassword != "" {
		result.RedisPassword = override.RedisPassword
	}
	if override.RedisDB > 0 {
		result.RedisDB = override.RedisDB
	}
	if v := strings.TrimSpace(override.RedisKeyPrefix); v != "" {
		result.RedisKeyPrefix = v
	}
	return result
}

// LoadConfig reads HISTORY_CONFIG_FILE (JSON) and then HISTORY_BACKEND,
// HISTORY_DIR and the REDIS_* variables.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("HISTORY_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read history config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse history config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg := Config{
		Backend:        os.Getenv("HISTORY_BACKEND"),
		Dir:            os.Getenv("HISTORY_DIR"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisKeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
		}
		envCfg.RedisDB = db
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Dir == "" {
		c.Dir = filepath.Join("data", "history")
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.RedisKeyPrefix == "" {
		c.RedisKeyPrefix = "insight"
	}
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendSQLite, BackendRedis, BackendFile, BackendNone:
		return nil
	}
	return fmt.Errorf("history: unsupported backend %q", c.Backend)
}
