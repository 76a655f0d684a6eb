// File path: internal/sqlite/config.go
package sqlite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config describes the warehouse database file and its connection pool.
type Config struct {
	Path string `json:"path"`
	Seed bool   `json:"seed"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`

	ConnMaxLifetime       time.Duration `json:"-"`
	ConnMaxLifetimeString string        `json:"conn_max_lifetime"`

	BusyTimeout       time.Duration `json:"-"`
	BusyTimeoutString string        `json:"busy_timeout"`
}

func DefaultConfig() Config {
	cfg := Config{Path: filepath.Join("data", "insight.db")}
	cfg.applyDefaults()
	return cfg
}

func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.Path); v != "" {
		result.Path = v
	}
	if override.Seed {
		result.Seed = true
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		result.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if v := strings.TrimSpace(override.ConnMaxLifetimeString); v != "" {
		result.ConnMaxLifetimeString = v
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	if v := strings.TrimSpace(override.BusyTimeoutString); v != "" {
		result.BusyTimeoutString = v
	}
	return result
}

// LoadConfig reads SQLITE_CONFIG_FILE (JSON) and then the SQLITE_*
// variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("SQLITE_CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read sqlite config: %w", err)
		}
		var fileCfg Config
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse sqlite config: %w", err)
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

func loadConfigEnv() (Config, error) {
	cfg := Config{
		Path:                  strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		ConnMaxLifetimeString: strings.TrimSpace(os.Getenv("SQLITE_CONN_MAX_LIFETIME")),
		BusyTimeoutString:     strings.TrimSpace(os.Getenv("SQLITE_BUSY_TIMEOUT")),
	}
	if raw := strings.TrimSpace(os.Getenv("SQLITE_SEED")); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SQLITE_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	for key, target := range map[string]*int{
		"SQLITE_MAX_OPEN_CONNS": &cfg.MaxOpenConns,
		"SQLITE_MAX_IDLE_CONNS": &cfg.MaxIdleConns,
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
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	c.ConnMaxLifetime = parseDuration(c.ConnMaxLifetime, c.ConnMaxLifetimeString, 15*time.Minute)
	c.BusyTimeout = parseDuration(c.BusyTimeout, c.BusyTimeoutString, 5*time.Second)
}

func parseDuration(current time.Duration, raw string, fallback time.Duration) time.Duration {
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
